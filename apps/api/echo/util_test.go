package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	. "github.com/trezcool/coffeeduty/apps/api/echo"
	"github.com/trezcool/coffeeduty/apps/container"
	"github.com/trezcool/coffeeduty/core"
	"github.com/trezcool/coffeeduty/core/roster"
	emailsvc "github.com/trezcool/coffeeduty/services/email"
	logsvc "github.com/trezcool/coffeeduty/services/logger"
	"github.com/trezcool/coffeeduty/testutil"
)

const (
	adminPassword  = "espresso-macchiato"
	schedulerToken = "cron-secret"
)

var errMissingToken = httpErr{Error: "not authenticated"}

type testApp struct {
	Server
	c      *container.Container
	mailer *emailsvc.ConsoleService
	loc    *time.Location
}

func testConfig(t *testing.T) *core.Config {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	return &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "Coffee Duty",
		FrontendBaseURL: "http://localhost:8000",
		Server:          core.ServerConfig{DisableReqLogs: true},
		Database:        core.DatabaseConfig{Engine: core.EngineSQLite, Path: ":memory:"},
		Auth: core.AuthConfig{
			SecretKey:          "test-secret",
			SchedulerToken:     schedulerToken,
			AdminPasswordHash:  string(hash),
			JWTExpirationDelta: time.Hour,
		},
		Email: core.EmailConfig{
			Backend:          core.EmailConsole,
			DefaultFromEmail: "Coffee Duty <noreply@example.com>",
			SendTimeout:      time.Second,
		},
		Schedule: core.ScheduleConfig{Timezone: "Europe/Ljubljana"},
	}
}

// setup serves a fresh SQLite database; the duty clock reads monday 2024-03-11 08:15 in Ljubljana.
func setup(t *testing.T, configure ...func(*core.Config)) testApp {
	t.Helper()
	conf := testConfig(t)
	for _, fn := range configure {
		fn(conf)
	}

	db := testutil.PrepareDB(t)
	c, err := container.FromDB(conf, logsvc.NewDiscardLogger(), db, io.Discard)
	require.NoError(t, err)

	loc, err := conf.Schedule.Location()
	require.NoError(t, err)
	now := time.Date(2024, time.March, 11, 8, 15, 30, 0, loc)
	c.Duty.NowFunc = func() time.Time { return now }

	mailer, ok := c.Mailer.(*emailsvc.ConsoleService)
	require.True(t, ok)

	srv := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     c.Logger,
		Roster:     c.Roster,
		Duty:       c.Duty,
		Settings:   c.Settings,
		Mailer:     c.Mailer,
		Gmail:      c.Gmail,
		Validate:   c.Validate,
		Translator: c.Translator,
		Gatherer:   c.Registry,
	})
	return testApp{Server: srv, c: c, mailer: mailer, loc: loc}
}

func (app testApp) createPerson(t *testing.T, first, last, email string, present bool) roster.Person {
	t.Helper()
	p, err := app.c.Roster.CreatePerson(context.Background(), roster.NewPerson{
		FirstName: first,
		LastName:  last,
		Email:     email,
		IsPresent: core.BoolPtr(present),
	})
	require.NoError(t, err)
	return p
}

func (app testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, app testApp) string {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/v1/auth/login", marshallObj(t, LoginRequest{Password: adminPassword}))
	app.do(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res LoginResponse
	unmarshall(t, rec, &res)
	require.NotEmpty(t, res.Token)
	return res.Token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
