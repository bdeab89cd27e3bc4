// Package payout wraps the external salary disbursement gateway. The payroll
// service only ever sees the Client interface; the HTTP implementation and a
// dry-run stub both satisfy it.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/hrms-payroll-api/pkg/config"
	"github.com/noah-isme/hrms-payroll-api/pkg/errors"
)

// TransferRequest carries one salary disbursement.
type TransferRequest struct {
	EmpID       string
	FullName    string
	BankAccount string
	BankIFSC    string
	Amount      decimal.Decimal
	Currency    string
	Reference   string
}

// TransferResult is the gateway's acknowledgement of a transfer.
type TransferResult struct {
	TransactionID string
	BankReference string
	Status        string
}

// Client disburses salaries through the payout gateway.
type Client interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}

// New builds a client from config. Mode "dryrun" returns a stub that
// acknowledges every transfer without calling the gateway.
func New(cfg config.PayoutConfig) Client {
	if cfg.Mode == "dryrun" || cfg.BaseURL == "" {
		return &dryRunClient{}
	}
	return &httpClient{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type httpClient struct {
	cfg  config.PayoutConfig
	http *http.Client
}

type transferPayload struct {
	AccountNumber string `json:"account_number"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Mode          string `json:"mode"`
	Reference     string `json:"reference_id"`
	Beneficiary   struct {
		Name          string `json:"name"`
		AccountNumber string `json:"account_number"`
		IFSC          string `json:"ifsc"`
	} `json:"beneficiary"`
}

type transferResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	UTR           string `json:"utr"`
	ErrorCode     string `json:"error_code"`
	ErrorMessage  string `json:"error_message"`
	FailureReason string `json:"failure_reason"`
}

func (c *httpClient) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	payload := transferPayload{
		AccountNumber: c.cfg.AccountNumber,
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		Mode:          "IMPS",
		Reference:     req.Reference,
	}
	payload.Beneficiary.Name = req.FullName
	payload.Beneficiary.AccountNumber = req.BankAccount
	payload.Beneficiary.IFSC = req.BankIFSC

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, errors.ErrInternal.Status, "encode transfer")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/payouts", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal.Code, errors.ErrInternal.Status, "build transfer request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, paymentErr(err, "payout gateway unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, paymentErr(err, "read payout response")
	}
	var out transferResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, paymentErr(err, "decode payout response")
	}
	if resp.StatusCode >= 400 || out.Status == "failed" || out.Status == "rejected" {
		reason := out.ErrorMessage
		if reason == "" {
			reason = out.FailureReason
		}
		if reason == "" {
			reason = fmt.Sprintf("gateway status %d", resp.StatusCode)
		}
		return nil, paymentErr(nil, "payout rejected: "+reason)
	}
	return &TransferResult{
		TransactionID: out.ID,
		BankReference: out.UTR,
		Status:        out.Status,
	}, nil
}

func paymentErr(err error, message string) *errors.Error {
	return errors.Wrap(err, errors.ErrPaymentFailed.Code, errors.ErrPaymentFailed.Status, message)
}

// dryRunClient acknowledges transfers without contacting the gateway. Useful
// in development and tests.
type dryRunClient struct{}

func (c *dryRunClient) Transfer(_ context.Context, req TransferRequest) (*TransferResult, error) {
	return &TransferResult{
		TransactionID: "dryrun_" + uuid.NewString(),
		BankReference: "DRYRUN-" + time.Now().UTC().Format("20060102150405"),
		Status:        "processed",
	}, nil
}
