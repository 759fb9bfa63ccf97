package upnp

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	_maxResponseSize = 4 * 1024 * 1024 // 4 MB, topology documents of large households run to a few hundred KB
	soapPrefix       = `<?xml version="1.0" encoding="utf-8"?><s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>`
	soapSuffix       = `</s:Body></s:Envelope>`
)

// SOAPTransport posts SOAP envelopes to a device control URL
type SOAPTransport struct {
	logger *zap.Logger
	client *http.Client
}

// NewSOAPTransport creates a transport whose requests time out after timeout
func NewSOAPTransport(logger *zap.Logger, timeout time.Duration) *SOAPTransport {
	return &SOAPTransport{
		logger: logger,
		client: &http.Client{Timeout: timeout},
	}
}

// Envelope wraps an encoded argument list into a SOAP request body.
func Envelope(serviceType, action string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(soapPrefix)
	buf.WriteString(`<u:`)
	buf.WriteString(action)
	buf.WriteString(` xmlns:u="`)
	_ = xml.EscapeText(&buf, []byte(serviceType))
	buf.WriteString(`">`)
	buf.Write(payload)
	buf.WriteString(`</u:`)
	buf.WriteString(action)
	buf.WriteString(`>`)
	buf.WriteString(soapSuffix)
	return buf.Bytes()
}

// Call executes action and returns the raw response envelope.
func (t *SOAPTransport) Call(ctx context.Context, controlURL, serviceType, action string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL, bytes.NewReader(Envelope(serviceType, action, payload)))
	if err != nil {
		return nil, TransportError(action, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf(`"%s#%s"`, serviceType, action))

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, TransportError(action, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, _maxResponseSize))
	if err != nil {
		return nil, TransportError(action, resp.StatusCode, fmt.Errorf("failed to read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if fault, ok := parseFault(body); ok {
			t.logger.Debug("Device returned fault",
				zap.String("action", action),
				zap.Int("status", resp.StatusCode),
				zap.Int("code", fault.Code))
			return nil, DeviceFault(action, fault.Code, fault.Description)
		}
		return nil, TransportError(action, resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
	}
	return body, nil
}

type upnpFault struct {
	Code        int    `xml:"errorCode"`
	Description string `xml:"errorDescription"`
}

type faultEnvelope struct {
	Body struct {
		Fault *struct {
			FaultCode   string `xml:"faultcode"`
			FaultString string `xml:"faultstring"`
			Detail      struct {
				UPnPError upnpFault `xml:"UPnPError"`
			} `xml:"detail"`
		} `xml:"Fault"`
	} `xml:"Body"`
}

// parseFault extracts the UPnP error from a SOAP fault body
func parseFault(body []byte) (upnpFault, bool) {
	var env faultEnvelope
	if err := xml.Unmarshal(body, &env); err != nil || env.Body.Fault == nil {
		return upnpFault{}, false
	}
	f := env.Body.Fault.Detail.UPnPError
	if f.Description == "" {
		f.Description = env.Body.Fault.FaultString
	}
	return f, true
}

// decodeResponse flattens the children of the action response element
// into a Response.
func decodeResponse(action string, body []byte) (Response, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	out := make(Response)
	// depth: 1 Envelope, 2 Body, 3 <u:ActionResponse>, 4 output arguments
	depth := 0
	var field string
	var text bytes.Buffer
	seenBody := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ParseError(action+" response", "", err)
		}
		switch tk := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 && tk.Name.Local == "Body" {
				seenBody = true
			}
			if depth == 4 {
				field = tk.Name.Local
				text.Reset()
			}
		case xml.CharData:
			if depth == 4 {
				text.Write(tk)
			}
		case xml.EndElement:
			if depth == 4 {
				out[field] = text.String()
			}
			depth--
		}
	}
	if !seenBody {
		return nil, MissingElement(action+" response", "Body")
	}
	return out, nil
}
