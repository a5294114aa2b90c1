package eventlog

import (
	"log"
	"time"
)

// Event is the envelope of one acquisition-run record.
type Event struct {
	TsMs  int64  `json:"ts_ms"`
	Event string `json:"event"`

	TicketsLeft int       `json:"tickets_left,omitempty"`
	Prices      []float64 `json:"prices,omitempty"`
	Cheapest    float64   `json:"cheapest,omitempty"`
	MaxPrice    float64   `json:"max_price,omitempty"`
	Author      string    `json:"author,omitempty"`
	Granted     int       `json:"granted,omitempty"`
	DelayMs     int64     `json:"delay_ms,omitempty"`
	Err         string    `json:"err,omitempty"`
}

// Event names.
const (
	EventRunStart     = "run_start"
	EventNoSales      = "no_sales"
	EventPriced       = "priced"
	EventTooExpensive = "too_expensive"
	EventPurchase     = "purchase"
	EventBackoff      = "backoff"
	EventRunDone      = "run_done"
	EventRunError     = "run_error"
)

// Emit stamps and writes the event, logging a warning when the write
// fails instead of disturbing the run.
func Emit(w *Writer, ev Event) {
	if w == nil {
		return
	}
	if ev.TsMs == 0 {
		ev.TsMs = time.Now().UnixMilli()
	}
	if err := w.Write(ev); err != nil {
		log.Printf("[events] ⚠ write failed: %v", err)
	}
}
