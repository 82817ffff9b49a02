// Package delhivery implements the carrier.Client contract against a
// Delhivery-style logistics HTTP API.
package delhivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/harsh-expnovateur/zenveda-backend/internal/carrier"
)

const defaultTimeout = 10 * time.Second

// Config holds the connection settings for the carrier API.
type Config struct {
	BaseURL string
	Token   string
	// Timeout bounds every carrier call. Defaults to 10s.
	Timeout time.Duration
}

// Client talks to the Delhivery-style API. All response-shape quirks are
// normalized here; callers only see carrier package types.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

var _ carrier.Client = (*Client)(nil)

// New creates a Client from the given config.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
	}
}

// AllocateWaybill reserves a fresh tracking number. The upstream endpoint
// returns the waybill as a bare JSON string, {"waybill": ...} or
// {"wbns": ...} depending on account configuration; all three are accepted.
func (c *Client) AllocateWaybill(ctx context.Context) (carrier.Waybill, error) {
	body, err := c.get(ctx, "/waybill/api/fetch/json/", nil)
	if err != nil {
		return "", &carrier.Error{Op: "allocate waybill", Err: err}
	}

	wb, err := normalizeWaybill(body)
	if err != nil {
		return "", &carrier.Error{Op: "allocate waybill", Err: err}
	}
	return wb, nil
}

// normalizeWaybill extracts the tracking number from the known response
// shapes: a bare string, an object keyed "waybill", or an object keyed
// "wbns" (possibly comma-separated, in which case the first entry wins).
func normalizeWaybill(body []byte) (carrier.Waybill, error) {
	trimmed := strings.TrimSpace(string(body))

	var bare string
	if err := json.Unmarshal([]byte(trimmed), &bare); err == nil && bare != "" {
		return carrier.Waybill(bare), nil
	}

	var obj struct {
		Waybill string `json:"waybill"`
		WBNs    string `json:"wbns"`
	}
	if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
		if obj.Waybill != "" {
			return carrier.Waybill(obj.Waybill), nil
		}
		if obj.WBNs != "" {
			first, _, _ := strings.Cut(obj.WBNs, ",")
			if first != "" {
				return carrier.Waybill(first), nil
			}
		}
	}

	// Last resort: some deployments respond with an unquoted token.
	if trimmed != "" && !strings.ContainsAny(trimmed, "{}[]") {
		return carrier.Waybill(strings.Trim(trimmed, `"'`)), nil
	}

	return "", errors.Errorf("unrecognized waybill response: %s", trimmed)
}

// CreateShipment registers a shipment via the CMU endpoint. The API expects
// a form-encoded body with the JSON payload nested under "data".
func (c *Client) CreateShipment(ctx context.Context, req carrier.ShipmentRequest) (json.RawMessage, error) {
	payload := map[string]any{
		"shipments": []map[string]any{{
			"name":          req.Name,
			"add":           req.Address,
			"pin":           req.Pincode,
			"city":          req.City,
			"state":         req.State,
			"country":       req.Country,
			"phone":         req.Phone,
			"order":         req.OrderNumber,
			"waybill":       string(req.Waybill),
			"weight":        req.WeightGrams,
			"payment_mode":  req.PaymentMode,
			"cod_amount":    req.CODAmount,
			"products_desc": "Order items",
		}},
	}

	body, err := c.postForm(ctx, "/api/cmu/create.json", payload)
	if err != nil {
		return nil, &carrier.Error{Op: "create shipment", Err: err}
	}
	return body, nil
}

// CancelShipment cancels a shipment via the package-edit endpoint.
func (c *Client) CancelShipment(ctx context.Context, wb carrier.Waybill) (json.RawMessage, error) {
	payload := map[string]any{
		"waybill":      string(wb),
		"cancellation": true,
	}

	body, err := c.postForm(ctx, "/api/p/edit", payload)
	if err != nil {
		return nil, &carrier.Error{Op: "cancel shipment", Err: err}
	}
	return body, nil
}

// trackingResponse mirrors the carrier's package-tracking payload closely
// enough to extract status and scan history.
type trackingResponse struct {
	ShipmentData []struct {
		Shipment struct {
			Status struct {
				Status string `json:"Status"`
			} `json:"Status"`
			Scans []struct {
				ScanDetail struct {
					Scan         string `json:"Scan"`
					ScanLocation string `json:"ScannedLocation"`
					Instructions string `json:"Instructions"`
					ScanDateTime string `json:"ScanDateTime"`
				} `json:"ScanDetail"`
			} `json:"Scans"`
		} `json:"Shipment"`
	} `json:"ShipmentData"`
}

// TrackShipment returns current status and scan history for a waybill.
func (c *Client) TrackShipment(ctx context.Context, wb carrier.Waybill, orderRef string) (*carrier.TrackingInfo, error) {
	body, err := c.get(ctx, "/api/v1/packages/json/", url.Values{
		"waybill": {string(wb)},
		"ref_ids": {orderRef},
	})
	if err != nil {
		return nil, &carrier.Error{Op: "track shipment", Err: err}
	}

	var resp trackingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &carrier.Error{Op: "track shipment", Err: errors.Wrap(err, "decode response")}
	}
	if len(resp.ShipmentData) == 0 {
		return nil, &carrier.Error{Op: "track shipment", Err: errors.New("no shipment data returned")}
	}

	shp := resp.ShipmentData[0].Shipment
	info := &carrier.TrackingInfo{Status: shp.Status.Status}
	for _, s := range shp.Scans {
		scan := carrier.TrackingScan{
			Status:   s.ScanDetail.Scan,
			Location: s.ScanDetail.ScanLocation,
			Remarks:  s.ScanDetail.Instructions,
		}
		if ts, err := time.Parse("2006-01-02T15:04:05", s.ScanDetail.ScanDateTime); err == nil {
			scan.RecordedAt = ts
		}
		info.Scans = append(info.Scans, scan)
	}
	return info, nil
}

// chargeRow is one element of the invoice-charges response array.
type chargeRow struct {
	Zone          string          `json:"zone"`
	ChargedWeight float64         `json:"charged_weight"`
	GrossAmount   decimal.Decimal `json:"gross_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TaxData       map[string]decimal.Decimal `json:"tax_data"`
}

// EstimateCharge prices a shipment. The endpoint answers with a one-element
// array; an empty array means the lane is not serviceable.
func (c *Client) EstimateCharge(ctx context.Context, req carrier.ChargeRequest) (*carrier.ChargeBreakdown, error) {
	body, err := c.get(ctx, "/kinko/v1/invoice/charges/.json", url.Values{
		"md":    {req.Mode},
		"ss":    {"Delivered"},
		"o_pin": {req.OriginPin},
		"d_pin": {req.DestinationPin},
		"cgm":   {strconv.Itoa(req.WeightGrams)},
		"pt":    {req.PaymentType},
	})
	if err != nil {
		return nil, &carrier.Error{Op: "estimate charge", Err: err}
	}

	var rows []chargeRow
	if err := json.Unmarshal(body, &rows); err != nil {
		// Some deployments answer with a bare object instead of an array.
		var row chargeRow
		if err2 := json.Unmarshal(body, &row); err2 != nil {
			return nil, &carrier.Error{Op: "estimate charge", Err: errors.Wrap(err, "decode response")}
		}
		rows = []chargeRow{row}
	}
	if len(rows) == 0 {
		return nil, &carrier.Error{Op: "estimate charge", Err: errors.New("no charge data returned")}
	}

	row := rows[0]
	return &carrier.ChargeBreakdown{
		Zone:          row.Zone,
		ChargedWeight: row.ChargedWeight,
		GrossAmount:   row.GrossAmount,
		TotalAmount:   row.TotalAmount,
		Taxes:         row.TaxData,
		Raw:           json.RawMessage(body),
	}, nil
}

// EstimateTransitDays returns the expected turn-around time in days for a
// lane and pickup date.
func (c *Client) EstimateTransitDays(ctx context.Context, req carrier.TransitRequest) (*carrier.TransitEstimate, error) {
	mot := req.Mode
	if mot == "" {
		mot = "S"
	}
	pdt := req.ProductType
	if pdt == "" {
		pdt = "B2C"
	}

	body, err := c.get(ctx, "/api/dc/expected_tat", url.Values{
		"origin_pin":           {req.OriginPin},
		"destination_pin":      {req.DestinationPin},
		"mot":                  {mot},
		"pdt":                  {pdt},
		"expected_pickup_date": {req.PickupDate.Format("2006-01-02 15:04")},
	})
	if err != nil {
		return nil, &carrier.Error{Op: "estimate transit days", Err: err}
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			TAT int `json:"tat"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &carrier.Error{Op: "estimate transit days", Err: errors.Wrap(err, "decode response")}
	}
	if !resp.Success || resp.Data.TAT <= 0 {
		return nil, &carrier.Error{Op: "estimate transit days", Err: errors.New("no transit estimate returned")}
	}

	return &carrier.TransitEstimate{Days: resp.Data.TAT, Raw: json.RawMessage(body)}, nil
}

// PackingSlip fetches the printable label payload for a waybill.
func (c *Client) PackingSlip(ctx context.Context, wb carrier.Waybill) (json.RawMessage, error) {
	body, err := c.get(ctx, "/api/p/packing_slip", url.Values{
		"wbns":     {string(wb)},
		"pdf":      {"true"},
		"pdf_size": {"4R"},
	})
	if err != nil {
		return nil, &carrier.Error{Op: "packing slip", Err: err}
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// postForm sends the API's peculiar form encoding: format=json plus the
// actual JSON payload as the "data" field.
func (c *Client) postForm(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encode payload")
	}

	form := url.Values{
		"format": {"json"},
		"data":   {string(data)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
