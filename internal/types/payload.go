package types

import (
	"encoding/json"
	"time"
)

// Opt is an explicitly present-or-absent value. The zero Opt is absent.
// Struct fields of type Opt[T] tagged `json:",omitzero"` are left out of
// the encoded payload when absent.
type Opt[T any] struct {
	value T
	set   bool
}

// Some returns a present Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, set: true}
}

// None returns an absent Opt.
func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.set
}

// Present reports whether a value is set.
func (o Opt[T]) Present() bool { return o.set }

// OrElse returns the value if present, otherwise def.
func (o Opt[T]) OrElse(def T) T {
	if o.set {
		return o.value
	}
	return def
}

// IsZero implements the omitzero contract of encoding/json.
func (o Opt[T]) IsZero() bool { return !o.set }

// MarshalJSON encodes the value, or null when absent.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes a value; null leaves the Opt absent.
func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Opt[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// Payload is the strongly-typed write request for a work package. Only present
// fields are sent; an absent field leaves the target value untouched.
type Payload struct {
	Subject        Opt[string]    `json:"subject,omitzero"`
	Description    Opt[string]    `json:"description,omitzero"`
	TypeID         Opt[int]       `json:"type_id,omitzero"`
	StatusID       Opt[int]       `json:"status_id,omitzero"`
	PriorityID     Opt[int]       `json:"priority_id,omitzero"`
	AssigneeID     Opt[int]       `json:"assignee_id,omitzero"`
	ResponsibleID  Opt[int]       `json:"responsible_id,omitzero"`
	ParentID       Opt[int]       `json:"parent_id,omitzero"`
	StartDate      Opt[time.Time] `json:"start_date,omitzero"`
	DueDate        Opt[time.Time] `json:"due_date,omitzero"`
	CorrelationKey Opt[string]    `json:"correlation_key,omitzero"`
}

// IsEmpty reports whether no field is present.
func (p *Payload) IsEmpty() bool {
	return !p.Subject.Present() && !p.Description.Present() && !p.TypeID.Present() &&
		!p.StatusID.Present() && !p.PriorityID.Present() && !p.AssigneeID.Present() &&
		!p.ResponsibleID.Present() && !p.ParentID.Present() && !p.StartDate.Present() &&
		!p.DueDate.Present() && !p.CorrelationKey.Present()
}

// PayloadBuilder assembles a Payload field by field.
type PayloadBuilder struct {
	p Payload
}

// NewPayload starts an empty payload.
func NewPayload() *PayloadBuilder {
	return &PayloadBuilder{}
}

func (b *PayloadBuilder) Subject(s string) *PayloadBuilder {
	b.p.Subject = Some(s)
	return b
}

func (b *PayloadBuilder) Description(markup string) *PayloadBuilder {
	b.p.Description = Some(markup)
	return b
}

func (b *PayloadBuilder) Type(id int) *PayloadBuilder {
	b.p.TypeID = Some(id)
	return b
}

func (b *PayloadBuilder) Status(id int) *PayloadBuilder {
	b.p.StatusID = Some(id)
	return b
}

func (b *PayloadBuilder) Priority(id int) *PayloadBuilder {
	b.p.PriorityID = Some(id)
	return b
}

// Assignee sets the assignee when the user resolved; an absent user omits the field.
func (b *PayloadBuilder) Assignee(u Opt[User]) *PayloadBuilder {
	if user, ok := u.Get(); ok {
		b.p.AssigneeID = Some(user.ID)
	}
	return b
}

// Responsible sets the accountable user when resolved.
func (b *PayloadBuilder) Responsible(u Opt[User]) *PayloadBuilder {
	if user, ok := u.Get(); ok {
		b.p.ResponsibleID = Some(user.ID)
	}
	return b
}

func (b *PayloadBuilder) Parent(id int) *PayloadBuilder {
	b.p.ParentID = Some(id)
	return b
}

// Dates carries start and due dates that are set on the source.
func (b *PayloadBuilder) Dates(start, due *time.Time) *PayloadBuilder {
	if start != nil {
		b.p.StartDate = Some(*start)
	}
	if due != nil {
		b.p.DueDate = Some(*due)
	}
	return b
}

func (b *PayloadBuilder) CorrelationKey(key string) *PayloadBuilder {
	b.p.CorrelationKey = Some(key)
	return b
}

// Build returns a copy of the assembled payload.
func (b *PayloadBuilder) Build() *Payload {
	p := b.p
	return &p
}
