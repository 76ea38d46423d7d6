// Package client is the outbound half of the gateway: where package
// restconf speaks RESTCONF northbound to browsers and controllers, client
// speaks it again southbound to whatever downstream device actually holds
// the data, over plain net/http. A clientNode's ClientSupport makes the
// remote device's tree look, from the node.Browser's point of view, like
// any other local data tree - same trick restconf.NewClientDriverNode
// plays for Select/Invoke against a live subscription stream.
package client

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	restconf "github.com/CESNET/rousette-go"
	"github.com/freeconf/yang/fc"
	"github.com/freeconf/yang/meta"
	"github.com/freeconf/yang/node"
	"github.com/freeconf/yang/nodeutil"
	"github.com/freeconf/yang/parser"
	"github.com/freeconf/yang/source"
)

// Client dials a remote RESTCONF server and hands back a Device that a
// node.Browser can use exactly like a local one, save that Peek-style
// introspection isn't available across the wire.
type Client struct {
	YangPath   source.Opener
	Compliance restconf.ComplianceOptions
}

// Address decomposes a device's base RESTCONF URL into the well-known
// sub-resource roots RFC 8040 defines (data, operations, the ietf-restconf
// root resource's discovery document, and this codebase's own schema and
// UI conventions).
type Address struct {
	Base       string
	Data       string
	Stream     string
	Ui         string
	Operations string
	Schema     string
	DeviceId   string
	Host       string
	Origin     string
}

func NewAddress(urlAddr string) (Address, error) {
	// add a trailing '/' if there is none to prepare for appending
	if urlAddr[len(urlAddr)-1] != '/' {
		urlAddr = urlAddr + "/"
	}

	urlParts, err := url.Parse(urlAddr)
	if err != nil {
		return Address{}, err
	}

	return Address{
		Base:       urlAddr,
		Data:       urlAddr + "data/",
		Schema:     urlAddr + "schema/",
		Ui:         urlAddr + "ui/",
		Operations: urlAddr + "operations/",
		Origin:     "http://" + urlParts.Host,
		DeviceId:   restconf.FindDeviceIdInUrl(urlAddr),
	}, nil
}

// Device is a connected remote RESTCONF peer: its YANG modules plus a
// node.Browser per module, proxied over HTTP.
type Device struct {
	address    Address
	yangPath   source.Opener
	schemaPath source.Opener
	client     *http.Client
	modules    map[string]*meta.Module
	compliance restconf.ComplianceOptions
}

// NewDevice dials urlAddr, loads the ietf-yang-library module itself (from
// the local YANG path or the peer's schema endpoint), and returns a Device
// ready for Browser calls; other modules are loaded on first use.
func (factory Client) NewDevice(urlAddr string) (*Device, error) {
	address, err := NewAddress(urlAddr)
	if err != nil {
		return nil, err
	}
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		},
	}
	remoteSchemaPath := httpStream{
		ypath:  factory.YangPath,
		client: httpClient,
		url:    address.Schema,
	}
	d := &Device{
		address:    address,
		yangPath:   factory.YangPath,
		schemaPath: source.Any(factory.YangPath, remoteSchemaPath.OpenStream),
		client:     httpClient,
		compliance: factory.Compliance,
		modules:    make(map[string]*meta.Module),
	}
	m, err := parser.LoadModule(d.schemaPath, "ietf-yang-library")
	if err != nil {
		return nil, fmt.Errorf("could not load ietf-yang-library: %w", err)
	}
	d.modules[m.Ident()] = m
	fc.Debug.Printf("connected to device %s", address.DeviceId)
	return d, nil
}

func (d *Device) SchemaSource() source.Opener {
	return d.schemaPath
}

func (d *Device) UiSource() source.Opener {
	s := httpStream{
		client: d.client,
		url:    d.address.Ui,
	}
	return s.OpenStream
}

// Browser returns a node.Browser for module, proxying every read, edit,
// delete, action invocation and notification subscription over HTTP to
// the remote device via clientNode.
func (d *Device) Browser(module string) (*node.Browser, error) {
	m, err := d.module(module)
	if err != nil {
		return nil, err
	}
	n := restconf.NewClientDriverNode(d, d.address.DeviceId)
	return node.NewBrowser(m, n), nil
}

func (d *Device) Close() {
}

func (d *Device) Modules() map[string]*meta.Module {
	return d.modules
}

func (d *Device) module(module string) (*meta.Module, error) {
	// caching module, but should replace w/cache that can refresh on stale
	m := d.modules[module]
	if m == nil {
		var err error
		if m, err = parser.LoadModule(d.schemaPath, module); err != nil {
			return nil, err
		}
		d.modules[module] = m
	}
	return m, nil
}

func (d *Device) ClientStream(params string, p *node.Path, ctx context.Context) (<-chan restconf.StreamEvent, error) {
	mod := meta.RootModule(p.Meta)
	fullUrl := fmt.Sprint(d.address.Data, mod.Ident(), ":", p.StringNoModule())
	req, err := http.NewRequest("GET", fullUrl, nil)
	if err != nil {
		return nil, err
	}
	if d.compliance == restconf.Simplified {
		q := req.URL.Query()
		q.Add(restconf.SimplifiedComplianceParam, "")
		req.URL.RawQuery = q.Encode()
	}
	req.Header.Set("Accept", string(restconf.TextStreamMimeType))
	fc.Debug.Printf("<=> SSE %s", fullUrl)
	stream := make(chan restconf.StreamEvent)
	go func() {
		resp, err := d.client.Do(req)
		if err != nil {
			stream <- restconf.StreamEvent{
				Timestamp: time.Now(),
				Node:      node.ErrorNode{Err: err},
			}
			return
		}
		events := decodeSse(resp.Body)
		defer resp.Body.Close()
		for {
			select {
			case event := <-events:
				var e restconf.StreamEvent
				var vals map[string]interface{}
				err := json.Unmarshal(event, &vals)
				if err == nil {
					if !d.compliance.DisableNotificationWrapper {
						payload, found := vals["ietf-restconf:notification"].(map[string]interface{})
						if !found {
							err = errors.New("SSE message missing ietf-restconf:notification wrapper")
						} else {
							body, found := payload["event"].(map[string]interface{})
							if !found {
								err = errors.New("SSE message missing event payload")
							} else {
								tstr, found := payload["eventTime"].(string)
								if !found {
									err = errors.New("SSE message missing eventTime")
								} else {
									var t time.Time
									t, err = time.Parse(restconf.EventTimeFormat, tstr)
									if err != nil {
										err = fmt.Errorf("eventTime in wrong format '%s'", tstr)
									} else {
										e = restconf.StreamEvent{
											Timestamp: t,
											Node:      nodeutil.ReadJSONValues(body),
										}
									}
								}
							}
						}
					} else {
						e = restconf.StreamEvent{
							Node:      nodeutil.ReadJSONIO(bytes.NewReader(event)),
							Timestamp: time.Now(),
						}
					}
				}
				if err != nil {
					e = restconf.StreamEvent{
						Node:      node.ErrorNode{Err: err},
						Timestamp: time.Now(),
					}
				}
				stream <- e
			case <-ctx.Done():
				return
			}
		}
	}()

	return stream, nil
}

// httpStream downloads schema text and implements source.Opener so it can
// transparently be used as a YangPath.
type httpStream struct {
	ypath  source.Opener
	client *http.Client
	url    string
}

// OpenStream implements source.Opener
func (s httpStream) OpenStream(name string, ext string) (io.Reader, error) {
	fullUrl := s.url + name + ext
	fc.Debug.Printf("httpStream url %s, name=%s, ext=%s", fullUrl, name, ext)
	resp, err := s.client.Get(fullUrl)
	if resp != nil {
		return resp.Body, err
	}
	return nil, err
}

// decodeSse reads an SSE response body and emits one []byte per message,
// reassembling a message's "data: <line>" records (event.Frame's encoding,
// run in reverse) and skipping comment frames (lines starting with ':',
// used as keep-alives by event.CommentFrame). The returned channel is
// closed when body hits EOF or a read error.
func decodeSse(body io.Reader) <-chan []byte {
	out := make(chan []byte)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var data [][]byte
		flush := func() {
			if len(data) == 0 {
				return
			}
			out <- bytes.Join(data, []byte("\n"))
			data = nil
		}
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				flush()
			case strings.HasPrefix(line, ":"):
				// comment/keep-alive frame, no payload
			case strings.HasPrefix(line, "data:"):
				field := strings.TrimPrefix(line, "data:")
				field = strings.TrimPrefix(field, " ")
				data = append(data, []byte(field))
			}
		}
		flush()
	}()
	return out
}

func (d *Device) ClientDo(method string, params string, p *node.Path, payload io.Reader) (io.ReadCloser, error) {
	var req *http.Request
	var err error
	mod := meta.RootModule(p.Meta)
	fullUrl := fmt.Sprint(d.address.Data, mod.Ident(), ":", p.StringNoModule())

	if meta.IsAction(p.Meta) && !d.compliance.AllowRpcUnderData {
		isRootLevelRpc := (p.Meta.Parent() == mod)
		if isRootLevelRpc {
			fullUrl = fmt.Sprint(d.address.Operations, mod.Ident(), ":", p.StringNoModule())
		}
	}
	if params != "" {
		fullUrl = fmt.Sprint(fullUrl, "?", params)
	}
	if req, err = http.NewRequest(method, fullUrl, payload); err != nil {
		return nil, err
	}
	if d.compliance == restconf.Simplified {
		req.Header.Set("Content-Type", string(restconf.PlainJsonMimeType))
		req.Header.Set("Accept", string(restconf.PlainJsonMimeType))
	} else {
		req.Header.Set("Content-Type", string(restconf.YangDataJsonMimeType1))
		req.Header.Set("Accept", string(restconf.YangDataJsonMimeType1))
	}
	fc.Debug.Printf("=> %s %s", method, fullUrl)
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		msg, _ := ioutil.ReadAll(resp.Body)
		return nil, fmt.Errorf("(%d) %s", resp.StatusCode, string(msg))
	}
	if resp.Body == nil || resp.ContentLength == 0 {
		return nil, nil
	}
	return resp.Body, nil
}
