package model_test

import (
	"testing"

	"github.com/and161185/glean-metrics/model"
	"github.com/and161185/glean-metrics/model/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

type staticState bool

func (s staticState) IsUploadEnabled() bool { return bool(s) }

func TestFullname(t *testing.T) {
	tests := []struct {
		name     string
		category string
		metric   string
		want     string
	}{
		{"categorized", "network", "requests", "network.requests"},
		{"empty_category", "", "x", ".x"},
		{"empty_name", "network", "", "network."},
		{"dotted_category", "a.b", "c", "a.b.c"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			md := model.NewCommonMetricData(model.MetadataConfig{Name: tc.metric, Category: tc.category})
			require.Equal(t, tc.want, md.Fullname())
		})
	}
}

func TestShouldRecord(t *testing.T) {
	tests := []struct {
		name     string
		disabled bool
		upload   bool
		want     bool
	}{
		{"enabled_upload_on", false, true, true},
		{"enabled_upload_off", false, false, false},
		{"disabled_upload_on", true, true, false},
		{"disabled_upload_off", true, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			md := model.NewCommonMetricData(model.MetadataConfig{Name: "n", Category: "c", Disabled: tc.disabled})
			require.Equal(t, tc.want, md.ShouldRecord(staticState(tc.upload)))
		})
	}
}

func TestShouldRecord_DisabledSkipsUploadState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	state := mocks.NewMockUploadState(ctrl)
	state.EXPECT().IsUploadEnabled().Times(0)

	md := model.NewCommonMetricData(model.MetadataConfig{Name: "n", Disabled: true})
	require.False(t, md.ShouldRecord(state))
}

func TestShouldRecord_FollowsUploadState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	state := mocks.NewMockUploadState(ctrl)
	gomock.InOrder(
		state.EXPECT().IsUploadEnabled().Return(true).Times(2),
		state.EXPECT().IsUploadEnabled().Return(false),
	)

	md := model.NewCommonMetricData(model.MetadataConfig{Name: "n"})
	require.True(t, md.ShouldRecord(state))
	require.True(t, md.ShouldRecord(state))
	require.False(t, md.ShouldRecord(state))
}

func TestShouldRecord_NilState(t *testing.T) {
	var md model.CommonMetricData
	require.False(t, md.ShouldRecord(nil))
}

func TestStorageNames(t *testing.T) {
	pings := []string{"metrics", "baseline", "events"}
	md := model.NewCommonMetricData(model.MetadataConfig{Name: "n", SendInPings: pings})

	require.Equal(t, []string{"metrics", "baseline", "events"}, md.StorageNames())

	pings[0] = "changed"
	require.Equal(t, "metrics", md.StorageNames()[0])

	got := md.StorageNames()
	got[1] = "changed"
	require.Equal(t, []string{"metrics", "baseline", "events"}, md.StorageNames())
}

func TestDefaults(t *testing.T) {
	var zero model.CommonMetricData
	require.Equal(t, model.LifetimePing, zero.Lifetime())
	require.False(t, zero.Disabled())
	require.Empty(t, zero.StorageNames())
	require.True(t, zero.ShouldRecord(staticState(true)))

	md := model.NewCommonMetricData(model.MetadataConfig{Name: "n"})
	require.Equal(t, model.LifetimePing, md.Lifetime())
	require.False(t, md.Disabled())
	require.NotNil(t, md.StorageNames())
	require.Empty(t, md.StorageNames())
}

func TestWithDisabled(t *testing.T) {
	md := model.NewCommonMetricData(model.MetadataConfig{Name: "n", Category: "c", SendInPings: []string{"p"}})
	off := md.WithDisabled(true)

	require.True(t, off.Disabled())
	require.False(t, md.Disabled())
	require.Equal(t, md.Fullname(), off.Fullname())
	require.Equal(t, md.StorageNames(), off.StorageNames())
}
