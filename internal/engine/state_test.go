package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auramail/auramail/internal/ai"
)

func TestNewInboundState_StampsWorkflowID(t *testing.T) {
	t.Parallel()

	email := testEmail()
	st := NewInboundState("wf-stamp", email)

	require.Equal(t, "wf-stamp", st.WorkflowID)
	require.Equal(t, "wf-stamp", st.Email.WorkflowID)
	require.True(t, st.FirstWrite)
	// The caller's copy is untouched.
	require.Empty(t, email.WorkflowID)
}

func TestDraftContext_CapsHistory(t *testing.T) {
	t.Parallel()

	st := &State{}
	st.AppendMessage(ai.RoleHuman, "intent")
	require.Len(t, st.DraftContext(), 1)

	st.AppendMessage(ai.RoleAssistant, "draft 1")
	require.Len(t, st.DraftContext(), 2)

	st.AppendMessage(ai.RoleHuman, "feedback 1")
	got := st.DraftContext()
	require.Len(t, got, 2)
	require.Equal(t, "draft 1", got[0].Content)
	require.Equal(t, "feedback 1", got[1].Content)

	st.AppendMessage(ai.RoleAssistant, "draft 2")
	st.AppendMessage(ai.RoleHuman, "feedback 2")
	got = st.DraftContext()
	require.Equal(t, "draft 2", got[0].Content)
	require.Equal(t, "feedback 2", got[1].Content)
	// Full history is retained even though the writer sees a window.
	require.Len(t, st.Messages, 5)
}

func TestState_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	st := NewInboundState("wf-json", testEmail())
	st.Decision = DecisionNotify
	st.Summary = "short summary"
	st.AppendMessage(ai.RoleHuman, "please reply")

	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var back State
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	require.Equal(t, st.WorkflowID, back.WorkflowID)
	require.Equal(t, st.Email.ID, back.Email.ID)
	require.Equal(t, st.Summary, back.Summary)
	require.Equal(t, st.Messages, back.Messages)
	require.True(t, back.FirstWrite)
}
