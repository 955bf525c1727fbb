// Package tushare fetches daily bars from the Tushare Pro HTTP API. Only
// the fields the observation panel needs are requested.
package tushare

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wonny/csquant/internal/panel"
	"github.com/wonny/csquant/pkg/config"
	"github.com/wonny/csquant/pkg/httputil"
	"github.com/wonny/csquant/pkg/logger"
)

// Client calls the Tushare Pro API.
type Client struct {
	http    *httputil.Client
	baseURL string
	token   string
	logger  *logger.Logger
}

// New creates a Tushare client with the configured rate limit.
func New(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		http:    httputil.New(log).WithRateLimit(cfg.Provider.RateLimit),
		baseURL: cfg.Provider.BaseURL,
		token:   cfg.Provider.Token,
		logger:  log,
	}
}

// request is the Tushare API request envelope.
type request struct {
	APIName string            `json:"api_name"`
	Token   string            `json:"token"`
	Params  map[string]string `json:"params"`
	Fields  string            `json:"fields"`
}

// response is the Tushare API response envelope.
type response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

// DailyBars fetches closing prices for one trade date. The returned
// observations carry prices only; scores and targets stay NaN until the
// research pipeline writes them.
func (c *Client) DailyBars(ctx context.Context, date time.Time) ([]panel.Observation, error) {
	req := request{
		APIName: "daily",
		Token:   c.token,
		Params:  map[string]string{"trade_date": date.Format("20060102")},
		Fields:  "ts_code,trade_date,close",
	}

	resp, err := c.http.PostJSON(ctx, c.baseURL, req)
	if err != nil {
		return nil, fmt.Errorf("tushare daily request: %w", err)
	}

	var payload response
	if err := httputil.DecodeJSON(resp, &payload); err != nil {
		return nil, fmt.Errorf("tushare daily response: %w", err)
	}
	if payload.Code != 0 {
		return nil, fmt.Errorf("tushare error %d: %s", payload.Code, payload.Msg)
	}

	fieldIdx := make(map[string]int, len(payload.Data.Fields))
	for i, name := range payload.Data.Fields {
		fieldIdx[name] = i
	}
	for _, required := range []string{"ts_code", "close"} {
		if _, ok := fieldIdx[required]; !ok {
			return nil, fmt.Errorf("tushare response missing field %q", required)
		}
	}

	observations := make([]panel.Observation, 0, len(payload.Data.Items))
	for _, item := range payload.Data.Items {
		code, ok := item[fieldIdx["ts_code"]].(string)
		if !ok || code == "" {
			continue
		}
		observations = append(observations, panel.Observation{
			Date:       panel.Day(date),
			Instrument: code,
			Score:      math.NaN(),
			Price:      numeric(item[fieldIdx["close"]]),
			Target:     math.NaN(),
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"trade_date": date.Format("2006-01-02"),
		"bars":       len(observations),
	}).Debug("Fetched daily bars")

	return observations, nil
}

func numeric(v interface{}) float64 {
	f, ok := v.(float64)
	if !ok {
		return math.NaN()
	}
	return f
}
