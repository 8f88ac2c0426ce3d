package browser

import (
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/proto"
)

// SniffedResponse is one JSON response observed while monitoring page
// network traffic. Scoring and API-candidate selection happen upstream.
type SniffedResponse struct {
	URL         string
	Method      string
	ContentType string
	Status      int
	Body        string
}

// Sniffer installs best-effort request/response hooks on the session's
// page. Construction can fail if the driver does not support network
// events; callers skip API discovery silently in that case.
type Sniffer struct {
	mu        sync.Mutex
	responses []SniffedResponse
	methods   map[proto.NetworkRequestID]string
	maxBody   int
	stopped   bool
}

// StartSniffer begins recording XHR/fetch JSON responses on the page.
// Bodies larger than maxBody bytes are skipped so one huge payload
// cannot stall exploration.
func (s *Session) StartSniffer(maxBody int) (*Sniffer, error) {
	if s.page == nil {
		return nil, errClosed
	}
	if err := (proto.NetworkEnable{}).Call(s.page); err != nil {
		return nil, err
	}

	if maxBody <= 0 {
		maxBody = 512 * 1024
	}

	sn := &Sniffer{
		methods: make(map[proto.NetworkRequestID]string),
		maxBody: maxBody,
	}

	page := s.page
	go page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			if !interestingRequest(e.Type, e.Request.URL) {
				return
			}
			sn.mu.Lock()
			if !sn.stopped {
				sn.methods[e.RequestID] = e.Request.Method
			}
			sn.mu.Unlock()
		},
		func(e *proto.NetworkResponseReceived) {
			sn.mu.Lock()
			method, tracked := sn.methods[e.RequestID]
			stopped := sn.stopped
			sn.mu.Unlock()
			if stopped || !tracked {
				return
			}
			if e.Response.Status != 200 {
				return
			}
			contentType := headerValue(e.Response.Headers, "content-type")
			if !strings.Contains(strings.ToLower(contentType), "application/json") {
				return
			}

			// Body fetch is best-effort; it fails for responses evicted
			// from the browser's buffer.
			body, err := proto.NetworkGetResponseBody{RequestID: e.RequestID}.Call(page)
			if err != nil || body.Base64Encoded {
				return
			}
			if len(body.Body) > sn.maxBody {
				return
			}

			sn.mu.Lock()
			if !sn.stopped {
				sn.responses = append(sn.responses, SniffedResponse{
					URL:         e.Response.URL,
					Method:      method,
					ContentType: contentType,
					Status:      e.Response.Status,
					Body:        body.Body,
				})
			}
			sn.mu.Unlock()
		},
	)()

	return sn, nil
}

// Stop ends recording and returns everything captured so far.
func (sn *Sniffer) Stop() []SniffedResponse {
	sn.mu.Lock()
	defer sn.mu.Unlock()
	sn.stopped = true
	out := make([]SniffedResponse, len(sn.responses))
	copy(out, sn.responses)
	return out
}

// interestingRequest keeps XHR/fetch traffic plus anything with /api/ in
// the URL regardless of resource type.
func interestingRequest(resourceType proto.NetworkResourceType, rawURL string) bool {
	if resourceType == proto.NetworkResourceTypeXHR || resourceType == proto.NetworkResourceTypeFetch {
		return true
	}
	return strings.Contains(rawURL, "/api/")
}

func headerValue(headers proto.NetworkHeaders, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v.String()
		}
	}
	return ""
}
