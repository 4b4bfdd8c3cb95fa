package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ciwomuli/eve-wormhole/internal/adapters/http/api"
	service "github.com/ciwomuli/eve-wormhole/internal/app"
	"github.com/ciwomuli/eve-wormhole/internal/auth"
	"github.com/ciwomuli/eve-wormhole/internal/domain/types"
	"github.com/ciwomuli/eve-wormhole/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type mockService struct {
	mu        sync.Mutex
	submitted []types.AddWormholeRequest
	who       []service.Submitter
	rows      map[string][]types.Wormhole
	submitErr error
	duplicate bool
}

func (m *mockService) Submit(_ context.Context, who service.Submitter, req types.AddWormholeRequest) (types.AddWormholeResult, error) { //nolint:gocritic // mirrors the interface
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return types.AddWormholeResult{}, m.submitErr
	}
	m.submitted = append(m.submitted, req)
	m.who = append(m.who, who)
	if m.duplicate {
		return types.AddWormholeResult{Status: types.StatusDuplicate, Duplicate: true}, nil
	}
	return types.AddWormholeResult{ID: fmt.Sprintf("id-%d", len(m.submitted)), Status: types.StatusAccepted}, nil
}

func (m *mockService) ListUser(_ context.Context, submitterID string) ([]types.Wormhole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[submitterID]
	if rows == nil {
		rows = []types.Wormhole{}
	}
	return rows, nil
}

type mockStats struct{}

func (mockStats) GetStats() map[string]any { return map[string]any{"started": true, "queueLength": 0} }

type response struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decode(rec *httptest.ResponseRecorder) response {
	var r response
	_ = json.Unmarshal(rec.Body.Bytes(), &r)
	return r
}

func newMux(svc *mockService) (*http.ServeMux, *auth.Issuer) {
	iss, err := auth.NewIssuer("test-secret", time.Hour)
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, iss, mockStats{}).Register(mux)
	return mux, iss
}

func do(mux http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

const validBody = `{"signature":"abc-123","source_system":"J123456","target_system":"Jita","type":"K162","life":"EOL"}`

func TestWormholeAdd(t *testing.T) {
	Convey("Given the API with a mock service", t, func() {
		svc := &mockService{}
		mux, iss := newMux(svc)
		token, _, _ := iss.Issue("42", "Pilot One")

		Convey("When no token is sent", func() {
			rec := do(mux, http.MethodPost, "/wormhole/add", "", validBody)

			Convey("Then it is rejected with 401", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
				So(decode(rec).Code, ShouldEqual, types.CodeError)
				So(decode(rec).Error, ShouldEqual, "unauthorized")
				So(svc.submitted, ShouldBeEmpty)
			})
		})

		Convey("When a valid report is posted", func() {
			rec := do(mux, http.MethodPost, "/wormhole/add", token, validBody)

			Convey("Then it is accepted for the token's pilot", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				resp := decode(rec)
				So(resp.Code, ShouldEqual, types.CodeOK)

				var res types.AddWormholeResult
				So(json.Unmarshal(resp.Data, &res), ShouldBeNil)
				So(res.Status, ShouldEqual, types.StatusAccepted)
				So(res.ID, ShouldEqual, "id-1")

				So(svc.who, ShouldResemble, []service.Submitter{{ID: "42", Name: "Pilot One"}})
				So(svc.submitted[0].Life, ShouldEqual, "eol")
			})
		})

		Convey("When the service reports a duplicate", func() {
			svc.duplicate = true
			rec := do(mux, http.MethodPost, "/wormhole/add", token, validBody)

			Convey("Then it answers 200 with the duplicate flag", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var res types.AddWormholeResult
				So(json.Unmarshal(decode(rec).Data, &res), ShouldBeNil)
				So(res.Duplicate, ShouldBeTrue)
			})
		})

		Convey("When the body fails validation", func() {
			body := `{"signature":"nope","source_system":"J123456","target_system":"Jita","type":"K162","mass":"huge"}`
			rec := do(mux, http.MethodPost, "/wormhole/add", token, body)

			Convey("Then it is rejected with field messages", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				resp := decode(rec)
				So(resp.Error, ShouldEqual, "bad_request")
				So(resp.Message, ShouldContainSubstring, "signature must look like ABC-123")
				So(resp.Message, ShouldContainSubstring, "mass")
				So(svc.submitted, ShouldBeEmpty)
			})
		})

		Convey("When a system name is only whitespace", func() {
			blankSource := do(mux, http.MethodPost, "/wormhole/add", token,
				`{"signature":"ABC-123","source_system":"   ","target_system":"Jita","type":"K162"}`)
			blankTarget := do(mux, http.MethodPost, "/wormhole/add", token,
				`{"signature":"ABC-123","source_system":"J123456","target_system":"\t","type":"K162"}`)

			Convey("Then it is rejected as missing", func() {
				So(blankSource.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(blankSource).Message, ShouldContainSubstring, "source_system")
				So(blankTarget.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(blankTarget).Message, ShouldContainSubstring, "target_system")
				So(svc.submitted, ShouldBeEmpty)
			})
		})

		Convey("When fields carry surrounding whitespace", func() {
			body := `{"signature":" ABC-123 ","source_system":" J123456","target_system":"Jita ","type":" K162","note":" hi "}`
			rec := do(mux, http.MethodPost, "/wormhole/add", token, body)

			Convey("Then the service receives them trimmed", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(svc.submitted, ShouldHaveLength, 1)
				got := svc.submitted[0]
				So(got.Signature, ShouldEqual, "ABC-123")
				So(got.SourceSystem, ShouldEqual, "J123456")
				So(got.TargetSystem, ShouldEqual, "Jita")
				So(got.Type, ShouldEqual, "K162")
				So(got.Note, ShouldEqual, "hi")
			})
		})

		Convey("When the body fails validation for a Chinese client", func() {
			body := `{"source_system":"J123456","target_system":"Jita","type":"K162"}`
			req := httptest.NewRequest(http.MethodPost, "/wormhole/add?lang=zh-CN", strings.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the message is translated", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(rec).Message, ShouldContainSubstring, "signature为必填字段")
			})
		})

		Convey("When the body is not JSON or has unknown fields", func() {
			bad := do(mux, http.MethodPost, "/wormhole/add", token, "{")
			unknown := do(mux, http.MethodPost, "/wormhole/add", token, `{"signature":"ABC-123","extra":1}`)
			empty := do(mux, http.MethodPost, "/wormhole/add", token, "")

			Convey("Then it is a bad request", func() {
				So(bad.Code, ShouldEqual, http.StatusBadRequest)
				So(unknown.Code, ShouldEqual, http.StatusBadRequest)
				So(empty.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the pipeline is full", func() {
			svc.submitErr = fmt.Errorf("%w: enqueue submission: queue full", types.ErrBackpressure)
			rec := do(mux, http.MethodPost, "/wormhole/add", token, validBody)

			Convey("Then it answers 429", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode(rec).Error, ShouldEqual, "backpressure")
			})
		})

		Convey("When the service is stopped", func() {
			svc.submitErr = service.ErrNotStarted
			rec := do(mux, http.MethodPost, "/wormhole/add", token, validBody)

			Convey("Then it answers 503", func() {
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the service fails unexpectedly", func() {
			svc.submitErr = fmt.Errorf("disk on fire")
			rec := do(mux, http.MethodPost, "/wormhole/add", token, validBody)

			Convey("Then it answers 500 without leaking the cause", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				So(decode(rec).Message, ShouldNotContainSubstring, "fire")
			})
		})

		Convey("When the wrong method is used", func() {
			rec := do(mux, http.MethodGet, "/wormhole/add", token, "")

			Convey("Then it answers 405", func() {
				So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(rec.Header().Get("Allow"), ShouldEqual, http.MethodPost)
			})
		})
	})
}

func TestWormholeListUser(t *testing.T) {
	Convey("Given stored wormholes for two pilots", t, func() {
		at := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
		svc := &mockService{rows: map[string][]types.Wormhole{
			"42": {{ID: "a", Signature: "ABC-123", SubmittedAt: at, ExpiresAt: at.Add(time.Hour)}},
			"7":  {{ID: "b", Signature: "XYZ-999"}},
		}}
		mux, iss := newMux(svc)
		token, _, _ := iss.Issue("42", "Pilot One")

		Convey("When the pilot lists their wormholes", func() {
			rec := do(mux, http.MethodGet, "/wormhole/listuser", token, "")

			Convey("Then only theirs are returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var rows []types.Wormhole
				So(json.Unmarshal(decode(rec).Data, &rows), ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
				So(rows[0].ID, ShouldEqual, "a")
				So(rows[0].ExpiresAt.Equal(at.Add(time.Hour)), ShouldBeTrue)
			})
		})

		Convey("When a pilot without wormholes lists", func() {
			other, _, _ := iss.Issue("99", "")
			rec := do(mux, http.MethodGet, "/wormhole/listuser", other, "")

			Convey("Then data is an empty array", func() {
				So(string(decode(rec).Data), ShouldEqual, "[]")
			})
		})

		Convey("When the token is forged", func() {
			rec := do(mux, http.MethodGet, "/wormhole/listuser", token+"x", "")

			Convey("Then it answers 401", func() {
				So(rec.Code, ShouldEqual, http.StatusUnauthorized)
			})
		})
	})
}

func TestMenuAndStats(t *testing.T) {
	Convey("Given the API", t, func() {
		mux, _ := newMux(&mockService{})

		Convey("When the menu is requested in Chinese", func() {
			req := httptest.NewRequest(http.MethodGet, "/menu/all", nil)
			req.Header.Set("Accept-Language", "zh-CN")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then titles are translated and no token is needed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Language"), ShouldEqual, "zh-CN")
				var menu []map[string]any
				So(json.Unmarshal(decode(rec).Data, &menu), ShouldBeNil)
				So(menu, ShouldHaveLength, 1)
				So(menu[0]["path"], ShouldEqual, "/wormhole")
				So(menu[0]["meta"].(map[string]any)["title"], ShouldEqual, "虫洞")
			})
		})

		Convey("When stats are requested", func() {
			rec := do(mux, http.MethodGet, "/stats", "", "")

			Convey("Then they are wrapped in the envelope", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var stats map[string]any
				So(json.Unmarshal(decode(rec).Data, &stats), ShouldBeNil)
				So(stats["started"], ShouldEqual, true)
			})
		})

		Convey("When metrics are scraped", func() {
			_ = do(mux, http.MethodGet, "/stats", "", "")
			rec := do(mux, http.MethodGet, "/healthz", "", "")

			Convey("Then HTTP metrics are exposed", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "http_requests_total")
			})
		})
	})
}

func TestOpError(t *testing.T) {
	Convey("Given wrapped API errors", t, func() {
		cause := fmt.Errorf("boom")
		err := api.WrapKind("api.op", api.ErrBadRequest, cause)

		Convey("Then both kind and cause are reachable", func() {
			So(err.Error(), ShouldEqual, "api.op: bad request: boom")
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
		})

		Convey("Then Wrap keeps known kinds and defaults to internal", func() {
			So(errors.Is(api.Wrap("op", types.ErrBackpressure), api.ErrBackpressure), ShouldBeTrue)
			So(errors.Is(api.Wrap("op", cause), api.ErrInternal), ShouldBeTrue)
			So(api.NewKind("op", api.ErrUnauthorized).Error(), ShouldEqual, "op: unauthorized")
		})
	})
}
