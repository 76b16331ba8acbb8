package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Message is one redacted message element of the wire payload.
type Message struct {
	MessageText string  `json:"message_text"`
	IsOffensive bool    `json:"is_offensive"`
	OffenseType string  `json:"offense_type"`
	Modality    string  `json:"modality"`
	IsGroup     bool    `json:"is_group"`
	Ts          int64   `json:"ts"`
	Sender      *string `json:"sender,omitempty"`
}

// Payload is the per-conversation body posted to the analysis endpoint.
type Payload struct {
	ConvID   string    `json:"conv_id"`
	DateTZ   string    `json:"date_tz"`
	DateISO  string    `json:"date_iso"`
	Messages []Message `json:"messages"`
}

// Result records one conversation's delivery outcome.
type Result struct {
	ConvID     string `json:"conv_id"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
	// Response holds the parsed JSON body on success, or the raw body text
	// when the endpoint returned something that is not JSON.
	Response any `json:"response,omitempty"`
}

// Dispatcher delivers selected conversations one at a time, recording every
// outcome. A failed conversation never aborts the rest of the batch.
type Dispatcher struct {
	poster Poster
	log    zerolog.Logger
}

func NewDispatcher(poster Poster, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{poster: poster, log: log}
}

// Send posts each payload sequentially and returns one Result per payload,
// in input order.
func (d *Dispatcher) Send(ctx context.Context, payloads []Payload) []Result {
	results := make([]Result, 0, len(payloads))
	for _, p := range payloads {
		started := time.Now()
		res := d.sendOne(ctx, p)
		evt := d.log.Info()
		if !res.OK {
			evt = d.log.Error()
		}
		evt.Str("conv_id", p.ConvID).
			Int("messages", len(p.Messages)).
			Bool("ok", res.OK).
			Int("status", res.StatusCode).
			Dur("took", time.Since(started)).
			Msg("conversation dispatched")
		results = append(results, res)
	}
	return results
}

func (d *Dispatcher) sendOne(ctx context.Context, p Payload) Result {
	resp, err := d.poster.Post(ctx, p)
	if err != nil {
		return Result{ConvID: p.ConvID, Error: err.Error()}
	}
	if !resp.StatusOK {
		return Result{
			ConvID:     p.ConvID,
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("%s: %s", resp.Status, truncate(string(resp.Body), 240)),
		}
	}
	res := Result{ConvID: p.ConvID, OK: true, StatusCode: resp.StatusCode}
	var parsed any
	if json.Unmarshal(resp.Body, &parsed) == nil {
		res.Response = parsed
	} else {
		res.Response = string(resp.Body)
	}
	return res
}

// FailureCount returns how many results failed.
func FailureCount(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.OK {
			n++
		}
	}
	return n
}

func truncate(msg string, max int) string {
	msg = strings.TrimSpace(msg)
	if len(msg) > max {
		return msg[:max]
	}
	return msg
}
