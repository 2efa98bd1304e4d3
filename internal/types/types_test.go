package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpt(t *testing.T) {
	var absent Opt[int]
	assert.False(t, absent.Present())
	assert.True(t, absent.IsZero())
	assert.Equal(t, 7, absent.OrElse(7))

	v, ok := Some(3).Get()
	assert.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 3, Some(3).OrElse(7))
	assert.False(t, None[string]().Present())
}

func TestPayloadOmitsAbsentFields(t *testing.T) {
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p := NewPayload().
		Subject("Fix login").
		Assignee(None[User]()).
		Responsible(Some(User{ID: 4, Login: "alice"})).
		Dates(nil, &due).
		Build()

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"subject":"Fix login","responsible_id":4,"due_date":"2024-05-01T00:00:00Z"}`, string(raw))

	var back Payload
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.False(t, back.AssigneeID.Present())
	assert.False(t, back.StartDate.Present())
	id, ok := back.ResponsibleID.Get()
	assert.True(t, ok)
	assert.Equal(t, 4, id)
}

func TestPayloadIsEmpty(t *testing.T) {
	assert.True(t, NewPayload().Build().IsEmpty())
	assert.False(t, NewPayload().Parent(9).Build().IsEmpty())
	assert.False(t, NewPayload().CorrelationKey("PROJ-1").Build().IsEmpty())
}

func TestBuildReturnsCopy(t *testing.T) {
	b := NewPayload().Subject("one")
	first := b.Build()
	b.Subject("two")
	s, _ := first.Subject.Get()
	assert.Equal(t, "one", s)
}

func TestRelationType(t *testing.T) {
	assert.True(t, RelParent.IsHierarchical())
	assert.False(t, RelBlocks.IsHierarchical())
	assert.True(t, RelRelates.IsSymmetric())
	assert.False(t, RelDuplicates.IsSymmetric())
	assert.True(t, RelPartOf.IsWellKnown())
	assert.False(t, RelationType("sibling").IsWellKnown())
}

func TestAccountRef(t *testing.T) {
	var nilAcct *Account
	assert.Equal(t, "", nilAcct.Ref())
	assert.Equal(t, "acc-1", (&Account{AccountID: "acc-1", Email: "a@x"}).Ref())
	assert.Equal(t, "a@x", (&Account{Email: "a@x"}).Ref())
}

func TestAttachmentIsImage(t *testing.T) {
	assert.True(t, (&Attachment{MimeType: "image/png"}).IsImage())
	assert.False(t, (&Attachment{MimeType: "application/pdf"}).IsImage())
}
