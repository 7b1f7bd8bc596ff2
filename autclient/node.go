package autclient

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/launchdarkly/scenerunner/input"
	"github.com/launchdarkly/scenerunner/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// remoteNode is a scene instance inside the AUT service.
type remoteNode struct {
	owner   *Client
	rep     servicedef.NodeRep
	methods map[string]bool
	freed   bool
	lock    sync.Mutex
}

func newRemoteNode(owner *Client, rep servicedef.NodeRep) *remoteNode {
	n := &remoteNode{owner: owner, rep: rep, methods: make(map[string]bool)}
	for _, m := range rep.Methods {
		n.methods[m] = true
	}
	return n
}

func (n *remoteNode) path(pattern string) string {
	return withID(pattern, n.rep.ID)
}

func (n *remoteNode) Name() string { return n.rep.Name }

func (n *remoteNode) Valid() bool {
	n.lock.Lock()
	defer n.lock.Unlock()
	return !n.freed
}

func (n *remoteNode) HasMethod(name string) bool { return n.methods[name] }

func (n *remoteNode) Call(ctx context.Context, method string, args ...ldvalue.Value) (ldvalue.Value, error) {
	var result servicedef.CallResult
	params := servicedef.CallParams{Method: method, Args: args}
	if err := n.owner.request(ctx, http.MethodPost, n.path(servicedef.CallPath), params, &result); err != nil {
		return ldvalue.Null(), err
	}
	return result.Value, nil
}

func (n *remoteNode) Get(name string) (ldvalue.Value, bool) {
	var rep servicedef.PropertyRep
	p := strings.Replace(n.path(servicedef.PropertyPath), "{name}", url.PathEscape(name), 1)
	if err := n.owner.quickRequest(http.MethodGet, p, nil, &rep); err != nil {
		if !isStatus(err, http.StatusNotFound) {
			n.owner.logger.Printf("Error reading property %s of %s: %s", name, n.rep.Name, err)
		}
		return ldvalue.Null(), false
	}
	return rep.Value, true
}

// AwaitSignal long-polls the service until the signal is emitted or ctx is done.
func (n *remoteNode) AwaitSignal(ctx context.Context, signal string) ([]ldvalue.Value, error) {
	params := servicedef.AwaitSignalParams{
		Signal:    signal,
		TimeoutMS: ldvalue.NewOptionalInt(servicedef.SignalPollTimeoutMS),
	}
	for {
		// stays nil when the service answers 204 because the poll expired
		var rep *servicedef.SignalRep
		err := n.owner.request(ctx, http.MethodPost, n.path(servicedef.AwaitSignalPath), params, &rep)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if rep != nil {
			return rep.Args, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

func (n *remoteNode) viewport() servicedef.ViewportRep {
	var rep servicedef.ViewportRep
	if err := n.owner.quickRequest(http.MethodGet, n.path(servicedef.ViewportPath), nil, &rep); err != nil {
		n.owner.logger.Printf("Error reading viewport of %s: %s", n.rep.Name, err)
	}
	return rep
}

func (n *remoteNode) MousePosition() input.Vector2 { return n.viewport().MousePosition }

func (n *remoteNode) FocusOwner() string { return n.viewport().FocusOwner }

func (n *remoteNode) SetInputAsHandled() {
	if err := n.owner.quickRequest(http.MethodPost, n.path(servicedef.InputHandledPath), nil, nil); err != nil {
		n.owner.logger.Printf("Error marking input of %s as handled: %s", n.rep.Name, err)
	}
}

func (n *remoteNode) Free() {
	n.lock.Lock()
	if n.freed {
		n.lock.Unlock()
		return
	}
	n.freed = true
	n.lock.Unlock()
	if err := n.owner.quickRequest(http.MethodDelete, n.path(servicedef.ScenePath), nil, nil); err != nil {
		n.owner.logger.Printf("Error freeing %s: %s", n.rep.Name, err)
	}
}
