package autclient

import (
	"context"
	"net/http"

	"github.com/launchdarkly/scenerunner/input"
	"github.com/launchdarkly/scenerunner/servicedef"
)

type remoteDevice struct {
	owner *Client
}

func (d *remoteDevice) ParseInputEvent(ctx context.Context, e input.Event) error {
	return d.owner.boundedRequest(ctx, http.MethodPost, servicedef.InputPath, input.ToValue(e), nil)
}

func (d *remoteDevice) WarpMousePosition(pos input.Vector2) {
	if err := d.owner.quickRequest(http.MethodPost, servicedef.WarpPath, pos, nil); err != nil {
		d.owner.logger.Printf("Error warping mouse to %s: %s", pos, err)
	}
}

func (d *remoteDevice) state() (servicedef.DeviceStateRep, error) {
	var rep servicedef.DeviceStateRep
	err := d.owner.quickRequest(http.MethodGet, servicedef.InputPath, nil, &rep)
	if err != nil {
		d.owner.logger.Printf("Error reading input device state: %s", err)
	}
	return rep, err
}

func (d *remoteDevice) IsKeyPressed(key input.Key) bool {
	state, _ := d.state()
	for _, k := range state.Keys {
		if input.Key(k) == key {
			return true
		}
	}
	return false
}

func (d *remoteDevice) IsMouseButtonPressed(button input.Button) bool {
	state, _ := d.state()
	for _, b := range state.Buttons {
		if input.Button(b) == button {
			return true
		}
	}
	return false
}

func (d *remoteDevice) MouseButtonMask() input.ButtonMask {
	state, _ := d.state()
	return input.ButtonMask(state.Mask)
}
