// Package command implements the external control surface: a
// transport-agnostic handler dispatching on method name, served here over a
// Unix domain socket.
package command

import (
	"context"
	"encoding/json"
	"fmt"

	"netsim/internal/engine"
	"netsim/internal/log"
	"netsim/pkg/neterr"
	"netsim/pkg/settings"
)

// CommandHandler dispatches Command values to the running Engine.
type CommandHandler struct {
	eng *engine.Engine
}

// NewCommandHandler returns a handler bound to eng.
func NewCommandHandler(eng *engine.Engine) *CommandHandler {
	return &CommandHandler{eng: eng}
}

// Handle processes a command and returns a response.
func (h *CommandHandler) Handle(ctx context.Context, cmd Command) Response {
	log.GetLogger().WithField("method", cmd.Method).WithField("id", cmd.ID).Debug("handling command")

	switch cmd.Method {
	case "start_processing":
		return h.handleStartProcessing(cmd)
	case "stop_processing":
		return h.handleStopProcessing(cmd)
	case "get_status":
		return h.handleGetStatus(cmd)
	case "update_settings":
		return h.handleUpdateSettings(cmd)
	case "update_filter":
		return h.handleUpdateFilter(cmd)
	case "get_settings":
		return h.handleGetSettings(cmd)
	case "get_filter":
		return h.handleGetFilter(cmd)
	case "save_config":
		return h.handleSaveConfig(cmd)
	case "load_config":
		return h.handleLoadConfig(cmd)
	case "list_configs":
		return h.handleListConfigs(cmd)
	case "delete_config":
		return h.handleDeleteConfig(cmd)
	case "get_filter_history":
		return h.handleGetFilterHistory(cmd)
	case "clear_filter_history":
		return h.handleClearFilterHistory(cmd)
	case "start_tc_bandwidth":
		return h.handleStartTCBandwidth(cmd)
	case "stop_tc_bandwidth":
		return h.handleStopTCBandwidth(cmd)
	case "get_tc_bandwidth_status":
		return h.handleGetTCBandwidthStatus(cmd)
	default:
		return errResponse(cmd.ID, ErrCodeMethodNotFound, fmt.Sprintf("method %q not found", cmd.Method))
	}
}

func errResponse(id string, code int, msg string) Response {
	return Response{ID: id, Error: &ErrorInfo{Code: code, Message: msg}}
}

func okResponse(id string, result interface{}) Response {
	return Response{ID: id, Result: result}
}

func errFromErr(id string, err error) Response {
	code := ErrCodeInternal
	switch {
	case err == neterr.ErrAlreadyRunning, err == neterr.ErrNotRunning:
		code = ErrCodeInvalidRequest
	case err == neterr.ErrInvalidFilter, err == neterr.ErrInvalidProbability, err == neterr.ErrUnknownModule:
		code = ErrCodeInvalidParams
	}
	return errResponse(id, code, err.Error())
}

// StartProcessingParams carries the initial filter and settings for a
// capture session.
type StartProcessingParams struct {
	Filter   string            `json:"filter"`
	Settings *settings.Settings `json:"settings,omitempty"`
}

func (h *CommandHandler) handleStartProcessing(cmd Command) Response {
	var params StartProcessingParams
	if len(cmd.Params) > 0 {
		if err := json.Unmarshal(cmd.Params, &params); err != nil {
			return errResponse(cmd.ID, ErrCodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
		}
	}

	s := settings.Default()
	if params.Settings != nil {
		s = *params.Settings
	}

	if err := h.eng.StartProcessing(s, params.Filter); err != nil {
		return errFromErr(cmd.ID, err)
	}
	return okResponse(cmd.ID, map[string]interface{}{"status": "started"})
}

func (h *CommandHandler) handleStopProcessing(cmd Command) Response {
	if err := h.eng.StopProcessing(); err != nil {
		return errFromErr(cmd.ID, err)
	}
	return okResponse(cmd.ID, map[string]interface{}{"status": "stopped"})
}

func (h *CommandHandler) handleGetStatus(cmd Command) Response {
	snap := h.eng.StatsSnapshot()
	return okResponse(cmd.ID, map[string]interface{}{
		"running": h.eng.Running(),
		"filter":  h.eng.Filter(),
		"stats":   snap,
	})
}

// UpdateSettingsParams carries a full settings replacement.
type UpdateSettingsParams struct {
	Settings settings.Settings `json:"settings"`
}

func (h *CommandHandler) handleUpdateSettings(cmd Command) Response {
	var params UpdateSettingsParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return errResponse(cmd.ID, ErrCodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	h.eng.UpdateSettings(params.Settings)
	return okResponse(cmd.ID, map[string]interface{}{"status": "updated"})
}

// UpdateFilterParams carries a new filter expression.
type UpdateFilterParams struct {
	Filter string `json:"filter"`
}

func (h *CommandHandler) handleUpdateFilter(cmd Command) Response {
	var params UpdateFilterParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return errResponse(cmd.ID, ErrCodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	if err := h.eng.UpdateFilter(params.Filter); err != nil {
		return errFromErr(cmd.ID, err)
	}
	return okResponse(cmd.ID, map[string]interface{}{"status": "updated"})
}

func (h *CommandHandler) handleGetSettings(cmd Command) Response {
	return okResponse(cmd.ID, h.eng.Settings())
}

func (h *CommandHandler) handleGetFilter(cmd Command) Response {
	return okResponse(cmd.ID, map[string]interface{}{"filter": h.eng.Filter()})
}

// SaveConfigParams names the profile to persist the current settings under.
type SaveConfigParams struct {
	Name string `json:"name"`
}

func (h *CommandHandler) handleSaveConfig(cmd Command) Response {
	var params SaveConfigParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return errResponse(cmd.ID, ErrCodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	if h.eng.Store == nil {
		return errResponse(cmd.ID, ErrCodeInternal, "config store not available")
	}
	if err := h.eng.Store.Save(params.Name, h.eng.Settings()); err != nil {
		return errFromErr(cmd.ID, err)
	}
	return okResponse(cmd.ID, map[string]interface{}{"name": params.Name, "status": "saved"})
}

// LoadConfigParams names the profile to load and apply.
type LoadConfigParams struct {
	Name string `json:"name"`
}

func (h *CommandHandler) handleLoadConfig(cmd Command) Response {
	var params LoadConfigParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return errResponse(cmd.ID, ErrCodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	if h.eng.Store == nil {
		return errResponse(cmd.ID, ErrCodeInternal, "config store not available")
	}
	s, err := h.eng.Store.Load(params.Name)
	if err != nil {
		return errFromErr(cmd.ID, err)
	}
	h.eng.UpdateSettings(s)
	return okResponse(cmd.ID, map[string]interface{}{"name": params.Name, "status": "loaded"})
}

func (h *CommandHandler) handleListConfigs(cmd Command) Response {
	if h.eng.Store == nil {
		return errResponse(cmd.ID, ErrCodeInternal, "config store not available")
	}
	names, err := h.eng.Store.List()
	if err != nil {
		return errFromErr(cmd.ID, err)
	}
	return okResponse(cmd.ID, map[string]interface{}{"configs": names})
}

// DeleteConfigParams names the profile to remove.
type DeleteConfigParams struct {
	Name string `json:"name"`
}

func (h *CommandHandler) handleDeleteConfig(cmd Command) Response {
	var params DeleteConfigParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return errResponse(cmd.ID, ErrCodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	if h.eng.Store == nil {
		return errResponse(cmd.ID, ErrCodeInternal, "config store not available")
	}
	if err := h.eng.Store.Delete(params.Name); err != nil {
		return errFromErr(cmd.ID, err)
	}
	return okResponse(cmd.ID, map[string]interface{}{"name": params.Name, "status": "deleted"})
}

func (h *CommandHandler) handleGetFilterHistory(cmd Command) Response {
	if h.eng.Store == nil {
		return errResponse(cmd.ID, ErrCodeInternal, "config store not available")
	}
	filters, err := h.eng.Store.FilterHistory()
	if err != nil {
		return errFromErr(cmd.ID, err)
	}
	return okResponse(cmd.ID, map[string]interface{}{"filters": filters})
}

func (h *CommandHandler) handleClearFilterHistory(cmd Command) Response {
	if h.eng.Store == nil {
		return errResponse(cmd.ID, ErrCodeInternal, "config store not available")
	}
	if err := h.eng.Store.ClearFilterHistory(); err != nil {
		return errFromErr(cmd.ID, err)
	}
	return okResponse(cmd.ID, map[string]interface{}{"status": "cleared"})
}

// StartTCBandwidthParams configures the standalone throttler sender.
type StartTCBandwidthParams struct {
	LimitKbps float64 `json:"limit_kbps"`
	Filter    string  `json:"filter"`
}

func (h *CommandHandler) handleStartTCBandwidth(cmd Command) Response {
	var params StartTCBandwidthParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return errResponse(cmd.ID, ErrCodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	if err := h.eng.StartTCBandwidth(params.LimitKbps, params.Filter); err != nil {
		return errFromErr(cmd.ID, err)
	}
	return okResponse(cmd.ID, map[string]interface{}{"status": "started"})
}

func (h *CommandHandler) handleStopTCBandwidth(cmd Command) Response {
	if err := h.eng.StopTCBandwidth(); err != nil {
		return errFromErr(cmd.ID, err)
	}
	return okResponse(cmd.ID, map[string]interface{}{"status": "stopped"})
}

func (h *CommandHandler) handleGetTCBandwidthStatus(cmd Command) Response {
	active, limitKbps, filter := h.eng.TCBandwidthStatus()
	return okResponse(cmd.ID, map[string]interface{}{
		"active":     active,
		"limit_kbps": limitKbps,
		"filter":     filter,
	})
}
