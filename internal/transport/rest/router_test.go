package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/key-management/internal"
	"github.com/frahmantamala/key-management/internal/auth"
	"github.com/frahmantamala/key-management/internal/history"
	"github.com/frahmantamala/key-management/internal/key"
	"github.com/frahmantamala/key-management/internal/ledger"
	"github.com/frahmantamala/key-management/internal/metrics"
	"github.com/frahmantamala/key-management/internal/storage/filestore"
	"github.com/frahmantamala/key-management/internal/transport/rest"
	"github.com/frahmantamala/key-management/internal/user"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
)

const (
	apiBase    = "http://localhost:8080/api/v1"
	specPath   = "../../../api/openapi.yml"
	testSecret = "router-test-secret-0123456789abcdef"
)

var _ = Describe("Router", func() {
	var (
		ctx       context.Context
		router    *chi.Mux
		contract  routers.Router
		l         *ledger.Ledger
		adminTok  string
		userTok   string
		unhealthy error
	)

	BeforeEach(func() {
		ctx = context.Background()
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))

		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromFile(specPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Validate(loader.Context)).To(Succeed())
		contract, err = gorillamux.NewRouter(doc)
		Expect(err).NotTo(HaveOccurred())

		store, err := filestore.New(afero.NewMemMapFs(), "/data")
		Expect(err).NotTo(HaveOccurred())
		l, err = ledger.Open(ctx, store, ledger.WithLogger(lg))
		Expect(err).NotTo(HaveOccurred())

		_, err = l.AddUser(ctx, user.CreateUserDTO{Name: "Администратор", Login: "admin", Password: "admin123", Role: string(user.RoleAdmin)})
		Expect(err).NotTo(HaveOccurred())
		_, err = l.AddUser(ctx, user.CreateUserDTO{Name: "Иван Петров", Login: "ipetrov", Password: "user123", CardCode: "EMP001"})
		Expect(err).NotTo(HaveOccurred())
		_, err = l.AddUser(ctx, user.CreateUserDTO{Name: "Анна Сидорова", Login: "asidorova", Password: "user123", CardCode: "EMP002"})
		Expect(err).NotTo(HaveOccurred())
		_, err = l.AddKey(ctx, key.CreateKeyDTO{Name: "Офис 101", Barcode: "123456789", Location: "1 этаж"})
		Expect(err).NotTo(HaveOccurred())
		_, err = l.AddKey(ctx, key.CreateKeyDTO{Name: "Серверная", Barcode: "987654321", Location: "подвал"})
		Expect(err).NotTo(HaveOccurred())

		authSvc := auth.NewService(l, auth.NewJWTTokenGenerator(testSecret, time.Hour), lg)
		unhealthy = nil

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Auth:    auth.NewHandler(authSvc),
			Users:   user.NewHandler(l),
			Keys:    key.NewHandler(l),
			History: history.NewHandler(l),
			Ledger:  ledger.NewHandler(l),
		}, rest.RouterConfig{
			Checks: map[string]rest.Checker{
				"store": store.Ping,
				"probe": func(context.Context) error { return unhealthy },
			},
			Metrics:     metrics.New(l),
			MetricsPath: "/metrics",
			OpenAPIPath: specPath,
			Logger:      lg,
		})

		adminTok = login(router, "admin", "admin123")
		userTok = login(router, "ipetrov", "user123")
	})

	// call serves the request and checks the response against the OpenAPI
	// document before handing it back.
	call := func(method, path, token, body string) *httptest.ResponseRecorder {
		var rdr io.Reader
		if body != "" {
			rdr = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, apiBase+path, rdr)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		route, params, err := contract.FindRoute(req)
		Expect(err).NotTo(HaveOccurred(), "%s %s is not documented", method, path)
		input := &openapi3filter.ResponseValidationInput{
			RequestValidationInput: &openapi3filter.RequestValidationInput{
				Request:    req,
				PathParams: params,
				Route:      route,
			},
			Status:  w.Code,
			Header:  w.Header(),
			Options: &openapi3filter.Options{IncludeResponseStatus: true},
		}
		input.SetBodyBytes(w.Body.Bytes())
		Expect(openapi3filter.ValidateResponse(ctx, input)).To(Succeed(), "%s %s -> %d %s", method, path, w.Code, w.Body.String())
		return w
	}

	decode := func(w *httptest.ResponseRecorder, dst interface{}) {
		ExpectWithOffset(1, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(dst)).To(Succeed())
	}

	errorCode := func(w *httptest.ResponseRecorder) internal.ErrorCode {
		var body struct {
			Error struct {
				Code internal.ErrorCode `json:"code"`
			} `json:"error"`
		}
		decode(w, &body)
		return body.Error.Code
	}

	Describe("public endpoints", func() {
		It("answers ping", func() {
			Expect(call(http.MethodGet, "/ping", "", "").Code).To(Equal(http.StatusOK))
		})

		It("reports healthy components", func() {
			w := call(http.MethodGet, "/health", "", "")
			Expect(w.Code).To(Equal(http.StatusOK))
			var resp rest.HealthResponse
			decode(w, &resp)
			Expect(resp.Components).To(HaveKey("store"))
		})

		It("turns unhealthy when any check fails", func() {
			unhealthy = errors.New("disk gone")
			w := call(http.MethodGet, "/health", "", "")
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(w.Body.String()).To(ContainSubstring("disk gone"))
		})

		It("rejects a wrong password", func() {
			w := call(http.MethodPost, "/auth/login", "", `{"login":"admin","password":"nope"}`)
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(errorCode(w)).To(Equal(internal.ErrCodeInvalidCredentials))
		})

		It("rejects a login without credentials", func() {
			w := call(http.MethodPost, "/auth/login", "", `{}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("serves the OpenAPI document and metrics", func() {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yml", nil))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("Key Management API"))

			w = httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("key_management_ledger_keys"))
		})
	})

	Describe("authentication", func() {
		It("requires a token for keys", func() {
			w := call(http.MethodGet, "/keys", "", "")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})

		It("returns the session user", func() {
			w := call(http.MethodGet, "/auth/me", userTok, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			var u user.User
			decode(w, &u)
			Expect(u.Login).To(Equal("ipetrov"))
		})

		It("keeps admin routes away from plain users", func() {
			w := call(http.MethodGet, "/users", userTok, "")
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(errorCode(w)).To(Equal(internal.ErrCodeAdminRequired))
		})

		It("locks out a user deactivated after login", func() {
			var users user.UsersResponse
			decode(call(http.MethodGet, "/users", adminTok, ""), &users)
			var ivanID string
			for _, u := range users.Users {
				if u.Login == "ipetrov" {
					ivanID = u.ID
				}
			}
			Expect(call(http.MethodPost, "/users/"+ivanID+"/toggle", adminTok, "").Code).To(Equal(http.StatusOK))

			w := call(http.MethodGet, "/keys", userTok, "")
			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(errorCode(w)).To(Equal(internal.ErrCodeUserInactive))
		})
	})

	Describe("key movements", func() {
		It("issues to the session user and returns", func() {
			w := call(http.MethodPost, "/keys/issue", userTok, `{"barcode":"123456789"}`)
			Expect(w.Code).To(Equal(http.StatusOK))
			var res ledger.IssueResult
			decode(w, &res)
			Expect(res.HolderName).To(Equal("Иван Петров"))
			Expect(res.Key.TakenBy).To(Equal("Иван Петров"))

			w = call(http.MethodPost, "/keys/issue", userTok, `{"barcode":"123456789"}`)
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(errorCode(w)).To(Equal(internal.ErrCodeKeyAlreadyIssued))

			w = call(http.MethodPost, "/keys/return", userTok, `{"barcode":"123456789"}`)
			Expect(w.Code).To(Equal(http.StatusOK))
			var k key.Key
			decode(w, &k)
			Expect(k.Available).To(BeTrue())
			Expect(k.TakenBy).To(BeEmpty())

			w = call(http.MethodPost, "/keys/return", userTok, `{"barcode":"123456789"}`)
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(errorCode(w)).To(Equal(internal.ErrCodeKeyAlreadyAvailable))
		})

		It("issues by card code for admins", func() {
			w := call(http.MethodPost, "/keys/987654321/issue", adminTok, `{"card_code":"EMP002"}`)
			Expect(w.Code).To(Equal(http.StatusOK))
			var res ledger.IssueResult
			decode(w, &res)
			Expect(res.HolderName).To(Equal("Анна Сидорова"))

			w = call(http.MethodPost, "/keys/987654321/issue", userTok, `{"card_code":"EMP001"}`)
			Expect(w.Code).To(Equal(http.StatusForbidden))
		})

		It("maps an unknown barcode to 404", func() {
			w := call(http.MethodPost, "/keys/issue", userTok, `{"barcode":"000000000"}`)
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(errorCode(w)).To(Equal(internal.ErrCodeKeyNotFound))
		})

		It("rejects an empty barcode", func() {
			w := call(http.MethodPost, "/keys/return", userTok, `{"barcode":"  "}`)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("history", func() {
		BeforeEach(func() {
			Expect(call(http.MethodPost, "/keys/issue", userTok, `{"barcode":"123456789"}`).Code).To(Equal(http.StatusOK))
			Expect(call(http.MethodPost, "/keys/987654321/issue", adminTok, `{"card_code":"EMP002"}`).Code).To(Equal(http.StatusOK))
			Expect(call(http.MethodPost, "/keys/return", userTok, `{"barcode":"123456789"}`).Code).To(Equal(http.StatusOK))
		})

		It("shows admins every record, newest first", func() {
			w := call(http.MethodGet, "/history", adminTok, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			var resp history.HistoryResponse
			decode(w, &resp)
			Expect(resp.Records).To(HaveLen(3))
			Expect(resp.Records[0].Action).To(Equal(history.ActionReturned))
		})

		It("limits a plain user to their own records", func() {
			w := call(http.MethodGet, "/history?holder=someone-else", userTok, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			var resp history.HistoryResponse
			decode(w, &resp)
			Expect(resp.Records).To(HaveLen(2))
			for _, r := range resp.Records {
				Expect(r.UserName).To(Equal("Иван Петров"))
			}
		})

		It("filters by action and limit", func() {
			w := call(http.MethodGet, "/history?action=taken&limit=1", adminTok, "")
			var resp history.HistoryResponse
			decode(w, &resp)
			Expect(resp.Records).To(HaveLen(1))
			Expect(resp.Records[0].UserName).To(Equal("Анна Сидорова"))
		})

		It("reports dashboard counts", func() {
			w := call(http.MethodGet, "/stats", adminTok, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			var stats ledger.Stats
			decode(w, &stats)
			Expect(stats).To(Equal(ledger.Stats{
				TotalKeys: 2, AvailableKeys: 1, HeldKeys: 1,
				TotalUsers: 3, ActiveUsers: 3, HistorySize: 3,
			}))
		})
	})

	Describe("administration", func() {
		It("adds and deletes keys", func() {
			w := call(http.MethodPost, "/keys", adminTok, `{"name":"Склад","barcode":"555","location":"2 этаж"}`)
			Expect(w.Code).To(Equal(http.StatusCreated))
			var k key.Key
			decode(w, &k)

			w = call(http.MethodPost, "/keys", adminTok, `{"name":"Склад 2","barcode":"555","location":"2 этаж"}`)
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(errorCode(w)).To(Equal(internal.ErrCodeDuplicateBarcode))

			Expect(call(http.MethodDelete, "/keys/"+k.ID, adminTok, "").Code).To(Equal(http.StatusNoContent))
			Expect(call(http.MethodDelete, "/keys/"+k.ID, adminTok, "").Code).To(Equal(http.StatusNoContent))
			Expect(l.ListKeys()).To(HaveLen(2))
		})

		It("manages users", func() {
			w := call(http.MethodGet, "/users/password", adminTok, "")
			Expect(w.Code).To(Equal(http.StatusOK))
			var gen user.GeneratedPasswordResponse
			decode(w, &gen)

			body := `{"name":"Пётр","login":"petr","password":"` + gen.Password + `","card_code":"EMP003"}`
			w = call(http.MethodPost, "/users", adminTok, body)
			Expect(w.Code).To(Equal(http.StatusCreated))
			var u user.User
			decode(w, &u)
			Expect(u.Role).To(Equal(user.RoleUser))

			w = call(http.MethodPost, "/users", adminTok, `{"name":"Дубль","login":"x","password":"p","card_code":"EMP003"}`)
			Expect(w.Code).To(Equal(http.StatusConflict))
			Expect(errorCode(w)).To(Equal(internal.ErrCodeDuplicateCardCode))

			w = call(http.MethodPut, "/users/"+u.ID, adminTok, `{"name":"Пётр Иванов","login":"petr","card_code":"EMP003"}`)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(login(router, "petr", gen.Password)).NotTo(BeEmpty())

			Expect(call(http.MethodGet, "/users/"+u.ID, adminTok, "").Code).To(Equal(http.StatusOK))
			Expect(call(http.MethodDelete, "/users/"+u.ID, adminTok, "").Code).To(Equal(http.StatusNoContent))
			Expect(call(http.MethodGet, "/users/"+u.ID, adminTok, "").Code).To(Equal(http.StatusNotFound))
		})

		It("refuses to delete the admin account", func() {
			var users user.UsersResponse
			decode(call(http.MethodGet, "/users", adminTok, ""), &users)
			for _, u := range users.Users {
				if u.Login == user.AdminLogin {
					w := call(http.MethodDelete, "/users/"+u.ID, adminTok, "")
					Expect(w.Code).To(Equal(http.StatusForbidden))
					Expect(errorCode(w)).To(Equal(internal.ErrCodeCannotDeleteAdmin))
				}
			}
		})
	})
})

func login(router http.Handler, name, password string) string {
	body := `{"login":"` + name + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, apiBase+"/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	ExpectWithOffset(1, w.Code).To(Equal(http.StatusOK), w.Body.String())

	var resp auth.LoginResponse
	ExpectWithOffset(1, json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
	return resp.AccessToken
}
