package scenetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/launchdarkly/scenerunner/input"
	"github.com/launchdarkly/scenerunner/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

type service struct {
	host   *Host
	nodes  map[string]*Node
	lastID int
	lock   sync.Mutex
}

// NewServiceHandler serves host over HTTP with the AUT service protocol defined in servicedef.
func NewServiceHandler(host *Host) http.Handler {
	s := &service{host: host, nodes: make(map[string]*Node)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+servicedef.StatusPath+"{$}", s.getStatus)
	mux.HandleFunc("POST "+servicedef.ScenesPath, s.postScene)
	mux.HandleFunc("DELETE "+servicedef.ScenePath, s.withNode(s.deleteScene))
	mux.HandleFunc("PUT "+servicedef.RootPath, s.withNode(s.putRoot))
	mux.HandleFunc("DELETE "+servicedef.RootPath, s.withNode(s.deleteRoot))
	mux.HandleFunc("POST "+servicedef.CallPath, s.withNode(s.postCall))
	mux.HandleFunc("GET "+servicedef.PropertyPath, s.withNode(s.getProperty))
	mux.HandleFunc("POST "+servicedef.AwaitSignalPath, s.withNode(s.postAwaitSignal))
	mux.HandleFunc("POST "+servicedef.InputHandledPath, s.withNode(s.postInputHandled))
	mux.HandleFunc("GET "+servicedef.ViewportPath, s.withNode(s.getViewport))
	mux.HandleFunc("POST "+servicedef.InputPath, s.postInput)
	mux.HandleFunc("GET "+servicedef.InputPath, s.getInput)
	mux.HandleFunc("POST "+servicedef.WarpPath, s.postWarp)
	mux.HandleFunc("POST "+servicedef.AwaitFramePath, s.postAwaitFrame)
	mux.HandleFunc("GET "+servicedef.EnginePath, s.getEngine)
	mux.HandleFunc("PUT "+servicedef.EnginePath, s.putEngine)
	mux.HandleFunc("PUT "+servicedef.WindowPath, s.putWindow)
	return mux
}

func (s *service) withNode(fn func(http.ResponseWriter, *http.Request, *Node)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		node := s.nodes[r.PathValue("id")]
		s.lock.Unlock()
		if node == nil {
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown scene %q", r.PathValue("id")))
			return
		}
		fn(w, r, node)
	}
}

func (s *service) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, servicedef.StatusRep{
		Name:         "scenetest",
		Capabilities: servicedef.AllCapabilities,
	})
}

func (s *service) postScene(w http.ResponseWriter, r *http.Request) {
	var params servicedef.CreateSceneParams
	if err := readJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n, err := s.host.Instantiate(r.Context(), params.ResourcePath)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	node := n.(*Node)

	s.lock.Lock()
	s.lastID++
	id := fmt.Sprintf("%d", s.lastID)
	s.nodes[id] = node
	s.lock.Unlock()

	node.lock.Lock()
	props := make([]string, 0, len(node.props))
	for name := range node.props {
		props = append(props, name)
	}
	node.lock.Unlock()
	methods := node.Methods()
	sort.Strings(methods)
	sort.Strings(props)

	w.Header().Set("Location", strings.Replace(servicedef.ScenePath, "{id}", id, 1))
	writeJSON(w, http.StatusCreated, servicedef.NodeRep{ID: id, Name: node.Name(), Methods: methods, Properties: props})
}

func (s *service) deleteScene(w http.ResponseWriter, r *http.Request, node *Node) {
	node.Free()
	s.lock.Lock()
	delete(s.nodes, r.PathValue("id"))
	s.lock.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) putRoot(w http.ResponseWriter, r *http.Request, node *Node) {
	if err := s.host.AddToRoot(r.Context(), node); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) deleteRoot(w http.ResponseWriter, r *http.Request, node *Node) {
	if err := s.host.RemoveFromRoot(r.Context(), node); err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) postCall(w http.ResponseWriter, r *http.Request, node *Node) {
	var params servicedef.CallParams
	if err := readJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !node.HasMethod(params.Method) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no method %s", params.Method))
		return
	}
	v, err := node.Call(r.Context(), params.Method, params.Args...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, servicedef.CallResult{Value: v})
}

func (s *service) getProperty(w http.ResponseWriter, r *http.Request, node *Node) {
	v, ok := node.Get(r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no property %s", r.PathValue("name")))
		return
	}
	writeJSON(w, http.StatusOK, servicedef.PropertyRep{Value: v})
}

func (s *service) postAwaitSignal(w http.ResponseWriter, r *http.Request, node *Node) {
	var params servicedef.AwaitSignalParams
	if err := readJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	timeout := time.Duration(params.TimeoutMS.OrElse(servicedef.SignalPollTimeoutMS)) * time.Millisecond
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	args, err := node.AwaitSignal(ctx, params.Signal)
	switch {
	case err == nil:
		if args == nil {
			args = []ldvalue.Value{}
		}
		writeJSON(w, http.StatusOK, servicedef.SignalRep{Args: args})
	case errors.Is(err, context.DeadlineExceeded):
		w.WriteHeader(http.StatusNoContent)
	default:
		// the client went away
	}
}

func (s *service) postInputHandled(w http.ResponseWriter, r *http.Request, node *Node) {
	node.SetInputAsHandled()
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) getViewport(w http.ResponseWriter, r *http.Request, node *Node) {
	writeJSON(w, http.StatusOK, servicedef.ViewportRep{
		MousePosition: node.MousePosition(),
		FocusOwner:    node.FocusOwner(),
		Valid:         node.Valid(),
	})
}

func (s *service) postInput(w http.ResponseWriter, r *http.Request) {
	var v ldvalue.Value
	if err := readJSON(r, &v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	e, err := input.FromValue(v)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.host.device.ParseInputEvent(r.Context(), e); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) getInput(w http.ResponseWriter, r *http.Request) {
	keys, buttons := s.host.device.pressed()
	rep := servicedef.DeviceStateRep{
		Keys:                make([]int, 0, len(keys)),
		Buttons:             make([]int, 0, len(buttons)),
		Mask:                int(s.host.device.MouseButtonMask()),
		GlobalMousePosition: s.host.GlobalMousePosition(),
	}
	for _, k := range keys {
		rep.Keys = append(rep.Keys, int(k))
	}
	for _, b := range buttons {
		rep.Buttons = append(rep.Buttons, int(b))
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *service) postWarp(w http.ResponseWriter, r *http.Request) {
	var pos input.Vector2
	if err := readJSON(r, &pos); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.host.device.WarpMousePosition(pos)
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) postAwaitFrame(w http.ResponseWriter, r *http.Request) {
	if err := s.host.AwaitIdleFrame(r.Context()); err != nil {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) getEngine(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, servicedef.EngineRep{
		IterationsPerSecond: s.host.IterationsPerSecond(),
		TimeScale:           s.host.TimeScale(),
	})
}

func (s *service) putEngine(w http.ResponseWriter, r *http.Request) {
	var params servicedef.EngineParams
	if err := readJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if params.IterationsPerSecond.IsDefined() {
		s.host.SetIterationsPerSecond(params.IterationsPerSecond.IntValue())
	}
	if params.TimeScale != nil {
		s.host.SetTimeScale(*params.TimeScale)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *service) putWindow(w http.ResponseWriter, r *http.Request) {
	var params servicedef.WindowParams
	if err := readJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.host.SetWindowForeground(params.Foreground)
	w.WriteHeader(http.StatusNoContent)
}

func readJSON(r *http.Request, target interface{}) error {
	if r.Body == nil {
		return errors.New("request has no body")
	}
	data, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("malformed JSON request body: %s", string(data))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	data, _ := json.Marshal(value)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, servicedef.ErrorRep{Error: err.Error()})
}
