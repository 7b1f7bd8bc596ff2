// Package servicedef describes the HTTP protocol between the scene runner and a remote AUT
// service, which is an engine process embedding a small agent that executes these requests.
package servicedef

import (
	"github.com/launchdarkly/scenerunner/input"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Capabilities that an AUT service can report in its status resource.
const (
	CapabilitySignals        = "signals"
	CapabilityWindow         = "window"
	CapabilityEngineSettings = "engine-settings"
	CapabilityFocus          = "focus"
)

// AllCapabilities lists every capability that some scenario step can depend on.
var AllCapabilities = []string{
	CapabilitySignals,
	CapabilityWindow,
	CapabilityEngineSettings,
	CapabilityFocus,
}

// Resource paths. Paths containing {id} refer to a scene created with POST ScenesPath.
const (
	StatusPath       = "/"
	ScenesPath       = "/scenes"
	ScenePath        = "/scenes/{id}"
	RootPath         = "/root/{id}"
	CallPath         = "/scenes/{id}/call"
	PropertyPath     = "/scenes/{id}/properties/{name}"
	AwaitSignalPath  = "/scenes/{id}/signals/await"
	InputHandledPath = "/scenes/{id}/input-handled"
	ViewportPath     = "/scenes/{id}/viewport"
	InputPath        = "/input"
	WarpPath         = "/input/warp"
	AwaitFramePath   = "/frames/await"
	EnginePath       = "/engine"
	WindowPath       = "/window"
)

// SignalPollTimeoutMS is how long a signal await request is held open by default.
const SignalPollTimeoutMS = 5000

type StatusRep struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}

type CreateSceneParams struct {
	ResourcePath string `json:"resourcePath"`
}

// NodeRep is returned when a scene is created.
type NodeRep struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Methods    []string `json:"methods,omitempty"`
	Properties []string `json:"properties,omitempty"`
}

type CallParams struct {
	Method string          `json:"method"`
	Args   []ldvalue.Value `json:"args,omitempty"`
}

type CallResult struct {
	Value ldvalue.Value `json:"value"`
}

type PropertyRep struct {
	Value ldvalue.Value `json:"value"`
}

// AwaitSignalParams asks the service to hold the request until the signal is emitted. If
// TimeoutMS elapses first, the service answers 204 and the client asks again.
type AwaitSignalParams struct {
	Signal    string              `json:"signal"`
	TimeoutMS ldvalue.OptionalInt `json:"timeoutMs,omitempty"`
}

type SignalRep struct {
	Args []ldvalue.Value `json:"args"`
}

type ViewportRep struct {
	MousePosition input.Vector2 `json:"mousePosition"`
	FocusOwner    string        `json:"focusOwner,omitempty"`
	Valid         bool          `json:"valid"`
}

// DeviceStateRep is the press state of the service's input device.
type DeviceStateRep struct {
	Keys                []int         `json:"keys"`
	Buttons             []int         `json:"buttons"`
	Mask                int           `json:"mask"`
	GlobalMousePosition input.Vector2 `json:"globalMousePosition"`
}

type EngineRep struct {
	IterationsPerSecond int     `json:"iterationsPerSecond"`
	TimeScale           float64 `json:"timeScale"`
}

// EngineParams changes engine settings; absent fields are left alone.
type EngineParams struct {
	IterationsPerSecond ldvalue.OptionalInt `json:"iterationsPerSecond,omitempty"`
	TimeScale           *float64            `json:"timeScale,omitempty"`
}

type WindowParams struct {
	Foreground bool `json:"foreground"`
}

type ErrorRep struct {
	Error string `json:"error"`
}
