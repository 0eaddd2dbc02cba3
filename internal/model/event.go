package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type EventKind string

const (
	EventNone      EventKind = ""
	EventCancelled EventKind = "cancelled"
	EventExpired   EventKind = "expired"
	EventRestored  EventKind = "restored"
)

// LifecycleEvent 只有 Cancelled、Expired、Restored 三种实现
type LifecycleEvent interface {
	Kind() EventKind
	OccurredAt() time.Time
	lifecycleEvent()
}

type Cancelled struct {
	By     int64
	Reason string
	At     time.Time
}

type Expired struct {
	At time.Time
}

type Restored struct {
	By int64
	At time.Time
}

func (Cancelled) Kind() EventKind         { return EventCancelled }
func (c Cancelled) OccurredAt() time.Time { return c.At }
func (Cancelled) lifecycleEvent()         {}

func (Expired) Kind() EventKind         { return EventExpired }
func (e Expired) OccurredAt() time.Time { return e.At }
func (Expired) lifecycleEvent()         {}

func (Restored) Kind() EventKind         { return EventRestored }
func (r Restored) OccurredAt() time.Time { return r.At }
func (Restored) lifecycleEvent()         {}

// LastEvent 最多持有一个生命周期事件，零值即 None。
// 每次赋值都会整体替换，不会出现多个事件字段同时存在。
type LastEvent struct {
	event LifecycleEvent
}

func NewLastEvent(e LifecycleEvent) LastEvent {
	return LastEvent{event: e}
}

func (l LastEvent) Event() LifecycleEvent {
	return l.event
}

func (l LastEvent) Kind() EventKind {
	if l.event == nil {
		return EventNone
	}
	return l.event.Kind()
}

func (l LastEvent) IsNone() bool {
	return l.event == nil
}

func (l LastEvent) Cancelled() (Cancelled, bool) {
	c, ok := l.event.(Cancelled)
	return c, ok
}

func (l LastEvent) Expired() (Expired, bool) {
	e, ok := l.event.(Expired)
	return e, ok
}

func (l LastEvent) Restored() (Restored, bool) {
	r, ok := l.event.(Restored)
	return r, ok
}

type eventEnvelope struct {
	Kind   EventKind `json:"kind"`
	By     int64     `json:"by,omitempty"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

func (l LastEvent) MarshalJSON() ([]byte, error) {
	switch e := l.event.(type) {
	case nil:
		return []byte("null"), nil
	case Cancelled:
		return json.Marshal(eventEnvelope{Kind: EventCancelled, By: e.By, Reason: e.Reason, At: e.At})
	case Expired:
		return json.Marshal(eventEnvelope{Kind: EventExpired, At: e.At})
	case Restored:
		return json.Marshal(eventEnvelope{Kind: EventRestored, By: e.By, At: e.At})
	default:
		return nil, fmt.Errorf("unknown lifecycle event %T", e)
	}
}

func (l *LastEvent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || len(data) == 0 {
		l.event = nil
		return nil
	}

	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	switch env.Kind {
	case EventNone:
		l.event = nil
	case EventCancelled:
		l.event = Cancelled{By: env.By, Reason: env.Reason, At: env.At}
	case EventExpired:
		l.event = Expired{At: env.At}
	case EventRestored:
		l.event = Restored{By: env.By, At: env.At}
	default:
		return fmt.Errorf("unknown lifecycle event kind %q", env.Kind)
	}
	return nil
}

// Value 实现 driver.Valuer，None 存为 NULL
func (l LastEvent) Value() (driver.Value, error) {
	if l.event == nil {
		return nil, nil
	}
	data, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner
func (l *LastEvent) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		l.event = nil
		return nil
	case []byte:
		return l.UnmarshalJSON(v)
	case string:
		return l.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into LastEvent", src)
	}
}
