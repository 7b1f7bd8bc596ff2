// Package autclient implements scene.Host for an application that runs in a separate process and
// exposes the AUT service protocol described in servicedef.
package autclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/launchdarkly/scenerunner/input"
	"github.com/launchdarkly/scenerunner/logging"
	"github.com/launchdarkly/scenerunner/scene"
	"github.com/launchdarkly/scenerunner/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	defaultRequestTimeout = time.Second * 10
	statusRetryInterval   = time.Millisecond * 100
)

// Client talks to an AUT service. It implements scene.Host; the Host methods that cannot return
// an error write failed requests to the logger and return zero values.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	logger         logging.Logger
	status         servicedef.StatusRep
	device         *remoteDevice
}

var _ scene.Host = (*Client)(nil)

// StatusError is returned when the service answers with an unexpected HTTP status.
type StatusError struct {
	Method  string
	URL     string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s request to %s returned HTTP status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s request to %s returned HTTP status %d: %s", e.Method, e.URL, e.Status, e.Message)
}

func isStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// Connect queries the status resource of the service at baseURL until it answers or timeout has
// elapsed, and returns a Client for it. Progress is written to output.
func Connect(baseURL string, timeout time.Duration, logger logging.Logger, output io.Writer) (*Client, error) {
	if logger == nil {
		logger = logging.NullLogger()
	}
	if output == nil {
		output = io.Discard
	}
	c := &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     http.DefaultClient,
		requestTimeout: defaultRequestTimeout,
		logger:         logger,
	}
	c.device = &remoteDevice{owner: c}

	fmt.Fprintf(output, "Connecting to AUT service at %s", baseURL)
	deadline := time.Now().Add(timeout)
	for {
		fmt.Fprintf(output, ".")
		var status servicedef.StatusRep
		err := c.quickRequest(http.MethodGet, servicedef.StatusPath, nil, &status)
		if err == nil {
			fmt.Fprintln(output)
			c.status = status
			logger.Printf("Status query returned name %q, capabilities %v", status.Name, status.Capabilities)
			return c, nil
		}
		var se *StatusError
		if errors.As(err, &se) {
			fmt.Fprintln(output)
			return nil, err
		}
		if !time.Now().Before(deadline) {
			fmt.Fprintln(output)
			return nil, fmt.Errorf("timed out, result of last query was: %w", err)
		}
		time.Sleep(statusRetryInterval)
	}
}

// Name is the name that the service reported.
func (c *Client) Name() string { return c.status.Name }

// Capabilities returns the capabilities reported by the service's status resource.
func (c *Client) Capabilities() []string {
	return append([]string(nil), c.status.Capabilities...)
}

func (c *Client) HasCapability(desired string) bool {
	for _, capability := range c.status.Capabilities {
		if capability == desired {
			return true
		}
	}
	return false
}

// MissingCapabilities returns the members of all that the service did not report.
func (c *Client) MissingCapabilities(all []string) []string {
	var ret []string
	for _, capability := range all {
		if !c.HasCapability(capability) {
			ret = append(ret, capability)
		}
	}
	return ret
}

func (c *Client) Instantiate(ctx context.Context, resourcePath string) (scene.Node, error) {
	params := servicedef.CreateSceneParams{ResourcePath: resourcePath}
	var rep servicedef.NodeRep
	c.logger.Printf("Creating scene %s", resourcePath)
	if err := c.request(ctx, http.MethodPost, servicedef.ScenesPath, params, &rep); err != nil {
		return nil, err
	}
	if rep.ID == "" {
		return nil, errors.New("AUT service did not return an ID for the new scene")
	}
	return newRemoteNode(c, rep), nil
}

func (c *Client) AddToRoot(ctx context.Context, node scene.Node) error {
	rn, err := c.ownNode(node)
	if err != nil {
		return err
	}
	return c.request(ctx, http.MethodPut, withID(servicedef.RootPath, rn.rep.ID), nil, nil)
}

func (c *Client) RemoveFromRoot(ctx context.Context, node scene.Node) error {
	rn, err := c.ownNode(node)
	if err != nil {
		return err
	}
	return c.request(ctx, http.MethodDelete, withID(servicedef.RootPath, rn.rep.ID), nil, nil)
}

func (c *Client) ownNode(node scene.Node) (*remoteNode, error) {
	rn, ok := node.(*remoteNode)
	if !ok || rn.owner != c {
		return nil, fmt.Errorf("node %s was not created by this AUT service", node.Name())
	}
	return rn, nil
}

func (c *Client) Device() scene.Device { return c.device }

func (c *Client) AwaitIdleFrame(ctx context.Context) error {
	return c.request(ctx, http.MethodPost, servicedef.AwaitFramePath, nil, nil)
}

func (c *Client) GlobalMousePosition() input.Vector2 {
	state, _ := c.device.state()
	return state.GlobalMousePosition
}

func (c *Client) engine() servicedef.EngineRep {
	var rep servicedef.EngineRep
	if err := c.quickRequest(http.MethodGet, servicedef.EnginePath, nil, &rep); err != nil {
		c.logger.Printf("Error reading engine settings: %s", err)
	}
	return rep
}

func (c *Client) IterationsPerSecond() int { return c.engine().IterationsPerSecond }

func (c *Client) SetIterationsPerSecond(ips int) {
	params := servicedef.EngineParams{IterationsPerSecond: ldvalue.NewOptionalInt(ips)}
	if err := c.quickRequest(http.MethodPut, servicedef.EnginePath, params, nil); err != nil {
		c.logger.Printf("Error setting iterations per second: %s", err)
	}
}

func (c *Client) TimeScale() float64 { return c.engine().TimeScale }

func (c *Client) SetTimeScale(scale float64) {
	params := servicedef.EngineParams{TimeScale: &scale}
	if err := c.quickRequest(http.MethodPut, servicedef.EnginePath, params, nil); err != nil {
		c.logger.Printf("Error setting time scale: %s", err)
	}
}

func (c *Client) SetWindowForeground(foreground bool) {
	if !c.HasCapability(servicedef.CapabilityWindow) {
		c.logger.Printf("AUT service cannot move its window, ignoring")
		return
	}
	params := servicedef.WindowParams{Foreground: foreground}
	if err := c.quickRequest(http.MethodPut, servicedef.WindowPath, params, nil); err != nil {
		c.logger.Printf("Error changing window state: %s", err)
	}
}

// quickRequest is request bounded by the default request timeout, for operations that never
// wait on the application.
func (c *Client) quickRequest(method, path string, body, out interface{}) error {
	return c.boundedRequest(context.Background(), method, path, body, out)
}

// boundedRequest is request bounded by both ctx and the default request timeout.
func (c *Client) boundedRequest(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	return c.request(ctx, method, path, body, out)
}

// request sends body as JSON, if it is not nil, and decodes a JSON response into out, if it is
// not nil. A status of 300 or more is returned as a *StatusError.
func (c *Client) request(ctx context.Context, method, path string, body, out interface{}) error {
	url := c.baseURL + path
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		se := &StatusError{Method: method, URL: url, Status: resp.StatusCode}
		var rep servicedef.ErrorRep
		if json.Unmarshal(data, &rep) == nil {
			se.Message = rep.Error
		}
		return se
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("malformed response from AUT service: %s", string(data))
	}
	return nil
}

func withID(pattern, id string) string {
	return strings.Replace(pattern, "{id}", id, 1)
}
