package serp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func validRequest() TrackingRequest {
	return TrackingRequest{
		Keywords:     []string{"plumber near me"},
		TargetDomain: "acme.com",
		Engine:       EngineGoogle,
		Device:       DeviceDesktop,
		MaxResults:   10,
	}
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	require.NoError(t, validRequest().Validate())
}

func TestValidateRejectsBadRequests(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*TrackingRequest)
		wantErr string
	}{
		{"no keywords", func(r *TrackingRequest) { r.Keywords = nil }, "keywords"},
		{"too many keywords", func(r *TrackingRequest) { r.Keywords = make([]string, 51) }, "keywords"},
		{"blank keyword", func(r *TrackingRequest) { r.Keywords = []string{"ok", "  "} }, "empty"},
		{"missing domain", func(r *TrackingRequest) { r.TargetDomain = "" }, "target_domain"},
		{"unknown engine", func(r *TrackingRequest) { r.Engine = "altavista" }, "search engine"},
		{"unknown device", func(r *TrackingRequest) { r.Device = "tablet" }, "device"},
		{"max results too low", func(r *TrackingRequest) { r.MaxResults = 5 }, "max_results"},
		{"max results too high", func(r *TrackingRequest) { r.MaxResults = 500 }, "max_results"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tc.wantErr), "error %q should mention %q", err, tc.wantErr)
		})
	}
}

func TestPerformanceRecordRank(t *testing.T) {
	require.Equal(t, 7, PerformanceRecord{RankBasisPoints: 700}.Rank())
	require.Equal(t, 0, PerformanceRecord{}.Rank())
}
