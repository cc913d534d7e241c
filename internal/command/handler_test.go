package command_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netsim/internal/command"
	"netsim/internal/config"
	"netsim/internal/engine"
	"netsim/pkg/driver"
	"netsim/pkg/driver/fake"
	"netsim/pkg/settings"
)

func newHandler(t *testing.T) (*command.CommandHandler, *engine.Engine) {
	t.Helper()
	store, err := config.NewStore(t.TempDir())
	require.NoError(t, err)
	newDrv := func(purpose string) driver.Driver { return fake.New(nil, 64) }
	eng := engine.New(store, nil, newDrv)
	return command.NewCommandHandler(eng), eng
}

func call(h *command.CommandHandler, method string, params interface{}) command.Response {
	var raw json.RawMessage
	if params != nil {
		b, _ := json.Marshal(params)
		raw = b
	}
	return h.Handle(context.Background(), command.Command{Method: method, Params: raw, ID: "1"})
}

func TestHandle_MethodNotFound(t *testing.T) {
	h, _ := newHandler(t)
	resp := call(h, "no_such_method", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, command.ErrCodeMethodNotFound, resp.Error.Code)
}

func TestHandle_StartStopProcessing(t *testing.T) {
	h, _ := newHandler(t)

	resp := call(h, "start_processing", command.StartProcessingParams{Filter: "true"})
	assert.Nil(t, resp.Error)

	resp = call(h, "start_processing", command.StartProcessingParams{Filter: "true"})
	require.NotNil(t, resp.Error, "starting an already-running session must fail")
	assert.Equal(t, command.ErrCodeInvalidRequest, resp.Error.Code)

	resp = call(h, "stop_processing", nil)
	assert.Nil(t, resp.Error)

	resp = call(h, "stop_processing", nil)
	require.NotNil(t, resp.Error, "stopping a non-running session must fail")
	assert.Equal(t, command.ErrCodeInvalidRequest, resp.Error.Code)
}

func TestHandle_GetStatus(t *testing.T) {
	h, _ := newHandler(t)
	resp := call(h, "get_status", nil)
	require.Nil(t, resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, result["running"])
}

func TestHandle_UpdateAndGetSettings(t *testing.T) {
	h, _ := newHandler(t)
	s := settings.NewBuilder().Drop(50).Build()

	resp := call(h, "update_settings", command.UpdateSettingsParams{Settings: s})
	require.Nil(t, resp.Error)

	resp = call(h, "get_settings", nil)
	require.Nil(t, resp.Error)
	got, ok := resp.Result.(settings.Settings)
	require.True(t, ok)
	assert.True(t, got.Drop.Common.Enabled)
}

func TestHandle_UpdateAndGetFilter(t *testing.T) {
	h, _ := newHandler(t)
	resp := call(h, "update_filter", command.UpdateFilterParams{Filter: "tcp"})
	require.Nil(t, resp.Error)

	resp = call(h, "get_filter", nil)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	assert.Equal(t, "tcp", result["filter"])
}

func TestHandle_SaveLoadListDeleteConfig(t *testing.T) {
	h, _ := newHandler(t)

	resp := call(h, "save_config", command.SaveConfigParams{Name: "profile-a"})
	require.Nil(t, resp.Error)

	resp = call(h, "list_configs", nil)
	require.Nil(t, resp.Error)
	names := resp.Result.(map[string]interface{})["configs"].([]string)
	assert.Contains(t, names, "profile-a")

	resp = call(h, "load_config", command.LoadConfigParams{Name: "profile-a"})
	require.Nil(t, resp.Error)

	resp = call(h, "delete_config", command.DeleteConfigParams{Name: "profile-a"})
	require.Nil(t, resp.Error)

	resp = call(h, "load_config", command.LoadConfigParams{Name: "profile-a"})
	assert.NotNil(t, resp.Error, "loading a deleted profile must fail")
}

func TestHandle_FilterHistory(t *testing.T) {
	h, _ := newHandler(t)

	call(h, "update_filter", command.UpdateFilterParams{Filter: "tcp"})
	resp := call(h, "get_filter_history", nil)
	require.Nil(t, resp.Error)
	filters := resp.Result.(map[string]interface{})["filters"].([]string)
	assert.Contains(t, filters, "tcp")

	resp = call(h, "clear_filter_history", nil)
	require.Nil(t, resp.Error)

	resp = call(h, "get_filter_history", nil)
	require.Nil(t, resp.Error)
	filters = resp.Result.(map[string]interface{})["filters"].([]string)
	assert.Empty(t, filters)
}

func TestHandle_InvalidParamsJSON(t *testing.T) {
	h, _ := newHandler(t)
	resp := h.Handle(context.Background(), command.Command{Method: "update_filter", Params: json.RawMessage("{not json"), ID: "1"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, command.ErrCodeInvalidParams, resp.Error.Code)
}

func TestHandle_TCBandwidthLifecycle(t *testing.T) {
	h, _ := newHandler(t)

	resp := call(h, "start_tc_bandwidth", command.StartTCBandwidthParams{LimitKbps: 100, Filter: "true"})
	require.Nil(t, resp.Error)

	resp = call(h, "get_tc_bandwidth_status", nil)
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]interface{})
	assert.Equal(t, true, result["active"])

	resp = call(h, "stop_tc_bandwidth", nil)
	require.Nil(t, resp.Error)

	resp = call(h, "stop_tc_bandwidth", nil)
	assert.NotNil(t, resp.Error, "stopping an inactive tc_bandwidth session must fail")
}
