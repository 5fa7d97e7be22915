package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := &Recorder{}
	scoped := NewScopedAPI("client", NewScopedAPI("vtop", rec))

	scoped.ReportBroken("login", "boom")
	scoped.ReportDebug("state", 1)
	scoped.ReportCount("attempts", 3)

	reports := rec.Reports()
	require.Len(t, reports, 3)
	require.Equal(t, Report{Kind: "broken", ID: "vtop: client: login", Params: []any{"boom"}}, reports[0])
	require.Equal(t, "debug", reports[1].Kind)
	require.Equal(t, "vtop: client: state", reports[1].ID)
	require.Equal(t, []any{int64(3)}, reports[2].Params)

	require.True(t, rec.Contains("boom"))
	require.False(t, rec.Contains("hunter2"))
}
