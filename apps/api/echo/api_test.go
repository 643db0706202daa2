package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/certificate"
	"github.com/shieldhq/shield/core/org"
	"github.com/shieldhq/shield/core/scoring"
	emailsvc "github.com/shieldhq/shield/services/email"
	logsvc "github.com/shieldhq/shield/services/logger"
	"github.com/shieldhq/shield/storage/database/inmem"
)

type testApp struct {
	server  Server
	conf    *core.Config
	orgSvc  *org.Service
	catSvc  *catalog.Service
	scores  *scoring.Service
	certSvc *certificate.Service
}

// noopQueue satisfies certificate.RenderQueue; API tests do not render documents.
type noopQueue struct{}

func (noopQueue) Enqueue(certificate.RenderRequest) {}

func setup(t *testing.T) testApp {
	t.Helper()

	conf := &core.Config{
		TestMode:  true,
		AppName:   "Shield",
		SecretKey: []byte("secret"),
	}
	conf.Server.JWTExpirationDelta = 1 * time.Hour
	conf.Server.JWTRefreshExpirationDelta = 24 * time.Hour
	conf.Certificate.IssuerName = "Shield Certification Board"

	db, err := inmem.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	logger := logsvc.NewStdLogger(log.New(ioutil.Discard, "", 0))
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	validate, trans := core.NewValidators()

	orgSvc := org.NewService(inmem.NewOrganizationRepository(db), mailSvc, conf)
	catSvc := catalog.NewService(inmem.NewCatalogRepository(db))
	scores := scoring.NewService(inmem.NewSubmissionRepository(db), catSvc, logger, conf)
	certSvc := certificate.NewService(inmem.NewCertificateRepository(db), scores, orgSvc, noopQueue{}, mailSvc, logger, conf)

	server := NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     trans,
		OrgSvc:         orgSvc,
		CatalogSvc:     catSvc,
		ScoringSvc:     scores,
		CertificateSvc: certSvc,
	})
	return testApp{server: server, conf: conf, orgSvc: orgSvc, catSvc: catSvc, scores: scores, certSvc: certSvc}
}

func (app testApp) createOrg(t *testing.T, name, email string, isAdmin bool) org.Organization {
	t.Helper()
	o, err := app.orgSvc.Create(context.Background(), org.NewOrganization{
		Name:     name,
		Email:    email,
		Password: "Secretly!",
	}, isAdmin)
	if err != nil {
		t.Fatalf("createOrg() failed: %v", err)
	}
	return o
}

func (app testApp) seedQuestion(t *testing.T) catalog.Question {
	t.Helper()
	q, err := app.catSvc.CreateQuestion(context.Background(), catalog.NewQuestion{
		Path:    catalog.PathStrategic,
		Text:    "Is there a documented strategy?",
		Options: []string{"Yes", "No"},
		Points:  map[string]float64{"Yes": 10, "No": 0},
		Weight:  1,
	})
	if err != nil {
		t.Fatalf("seedQuestion() failed: %v", err)
	}
	return q
}

func (app testApp) getToken(t *testing.T, o org.Organization) string {
	t.Helper()
	token, err := GenerateToken(app.conf, GetOrgClaims(app.conf, o))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
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

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func decodeObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("decodeObj() failed: %v; body %s", err, rec.Body.String())
	}
}

func Test_orgApi_registerLogin(t *testing.T) {
	app := setup(t)

	regData := marshallObj(t, org.NewOrganization{
		Name:            "Acme Corp",
		Email:           "acme@test.com",
		Password:        "Secretly!",
		PasswordConfirm: "Secretly!",
	})
	req, rec := newRequest(http.MethodPost, "/v1/organizations/register", regData)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register code = %v, want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	t.Run("valid credentials", func(t *testing.T) {
		loginData := marshallObj(t, LoginRequest{Email: "acme@test.com", Password: "Secretly!"})
		req, rec := newRequest(http.MethodPost, "/v1/organizations/login", loginData)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("login code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		decodeObj(t, rec, &resp)
		require.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		loginData := marshallObj(t, LoginRequest{Email: "acme@test.com", Password: "nope nope"})
		req, rec := newRequest(http.MethodPost, "/v1/organizations/login", loginData)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("login code = %v, want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/organizations/register", regData)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("register code = %v, want %v", rec.Code, http.StatusBadRequest)
		}
	})
}

func Test_api_authRequired(t *testing.T) {
	app := setup(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/submissions"},
		{http.MethodGet, "/v1/catalog/strategic/questions"},
		{http.MethodGet, "/v1/certificates"},
		{http.MethodGet, "/v1/organizations"},
	}
	for _, tt := range paths {
		req, rec := newRequest(tt.method, tt.path)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s code = %v, want %v", tt.method, tt.path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func Test_api_adminRequired(t *testing.T) {
	app := setup(t)
	o := app.createOrg(t, "Acme Corp", "acme@test.com", false)
	token := app.getToken(t, o)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/organizations"},
		{http.MethodPost, "/v1/catalog/questions"},
		{http.MethodPost, "/v1/certificates/issue/some-id"},
	}
	for _, tt := range paths {
		req, rec := newAuthRequest(tt.method, tt.path, token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("%s %s code = %v, want %v", tt.method, tt.path, rec.Code, http.StatusForbidden)
		}
	}
}

func Test_catalogApi_queryQuestions(t *testing.T) {
	app := setup(t)
	app.seedQuestion(t)
	o := app.createOrg(t, "Acme Corp", "acme@test.com", false)
	token := app.getToken(t, o)

	t.Run("known path", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/catalog/strategic/questions", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var questions []catalog.Question
		decodeObj(t, rec, &questions)
		require.Len(t, questions, 1)
		assert.Equal(t, "Is there a documented strategy?", questions[0].Text)
	})

	t.Run("unknown path", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/catalog/platinum/questions", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("thresholds", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/catalog/strategic/thresholds", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var thresholds []scoring.Threshold
		decodeObj(t, rec, &thresholds)
		if len(thresholds) != 4 {
			t.Errorf("len(thresholds) = %d, want 4", len(thresholds))
		}
	})
}

// Test_certificationFlow drives one organization through the whole pipeline
// over HTTP: draft, answers, submit, score, approve, issue, verify.
func Test_certificationFlow(t *testing.T) {
	app := setup(t)
	q := app.seedQuestion(t)

	o := app.createOrg(t, "Acme Corp", "acme@test.com", false)
	admin := app.createOrg(t, "Shield Ops", "ops@shield.test", true)
	token := app.getToken(t, o)
	adminToken := app.getToken(t, admin)

	// start a draft
	startData := marshallObj(t, scoring.NewSubmission{Path: catalog.PathStrategic})
	req, rec := newAuthRequest(http.MethodPost, "/v1/submissions", token, startData)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start code = %v, want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var sub scoring.Submission
	decodeObj(t, rec, &sub)
	if sub.Status != scoring.StatusDraft {
		t.Fatalf("Status = %v, want %v", sub.Status, scoring.StatusDraft)
	}

	// submitting an unanswered draft fails
	req, rec = newAuthRequest(http.MethodPost, "/v1/submissions/"+sub.ID+"/submit", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("submit code = %v, want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	// answer and submit
	answerData := marshallObj(t, scoring.SaveAnswer{QuestionID: q.ID, Option: "Yes"})
	req, rec = newAuthRequest(http.MethodPut, "/v1/submissions/"+sub.ID+"/answers", token, answerData)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("answer code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/submissions/"+sub.ID+"/submit", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	// scoring is admin-only
	req, rec = newAuthRequest(http.MethodPost, "/v1/submissions/"+sub.ID+"/score", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("score code = %v, want %v", rec.Code, http.StatusForbidden)
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/submissions/"+sub.ID+"/score", adminToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("score code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var res scoring.ScoreResult
	decodeObj(t, rec, &res)
	if res.Percentage != 100 || res.Rank != scoring.RankDiamond {
		t.Fatalf("result = %v%% %q, want 100%% %q", res.Percentage, res.Rank, scoring.RankDiamond)
	}

	// the owner can read the latest result
	req, rec = newAuthRequest(http.MethodGet, "/v1/submissions/"+sub.ID+"/result", token)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("result code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	// approve and issue
	req, rec = newAuthRequest(http.MethodPost, "/v1/results/"+res.ID+"/approve", adminToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/certificates/issue/"+res.ID, adminToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("issue code = %v, want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var cert certificate.Certificate
	decodeObj(t, rec, &cert)
	wantNumber := certificate.FormatNumber(catalog.PathStrategic, time.Now().UTC().Year(), o.ID, 1)
	if cert.Number != wantNumber {
		t.Errorf("Number = %q, want %q", cert.Number, wantNumber)
	}

	// double issuance conflicts
	req, rec = newAuthRequest(http.MethodPost, "/v1/certificates/issue/"+res.ID, adminToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("issue code = %v, want %v", rec.Code, http.StatusConflict)
	}

	// anyone authenticated can verify by number
	req, rec = newAuthRequest(http.MethodGet, "/v1/certificates/number/"+cert.Number, adminToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func Test_submissionApi_ownership(t *testing.T) {
	app := setup(t)
	app.seedQuestion(t)

	owner := app.createOrg(t, "Acme Corp", "acme@test.com", false)
	other := app.createOrg(t, "Other Corp", "other@test.com", false)
	admin := app.createOrg(t, "Shield Ops", "ops@shield.test", true)

	sub, err := app.scores.Start(context.Background(), owner.ID, scoring.NewSubmission{Path: catalog.PathStrategic})
	if err != nil {
		t.Fatalf("starting submission: %v", err)
	}

	tests := []struct {
		name     string
		o        org.Organization
		wantCode int
	}{
		{name: "owner", o: owner, wantCode: http.StatusOK},
		{name: "stranger", o: other, wantCode: http.StatusNotFound},
		{name: "admin", o: admin, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/submissions/"+sub.ID, app.getToken(t, tt.o))
			app.server.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("code = %v, want %v", rec.Code, tt.wantCode)
			}
		})
	}

	t.Run("query is scoped to the caller", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/submissions", app.getToken(t, other))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var subs []scoring.Submission
		decodeObj(t, rec, &subs)
		if len(subs) != 0 {
			t.Errorf("len(subs) = %d, want 0", len(subs))
		}
	})
}

func Test_orgApi_detailAccess(t *testing.T) {
	app := setup(t)
	o := app.createOrg(t, "Acme Corp", "acme@test.com", false)
	other := app.createOrg(t, "Other Corp", "other@test.com", false)
	token := app.getToken(t, o)

	t.Run("own record", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/organizations/"+strconv.Itoa(o.ID), token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v, want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("someone else's record", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/organizations/"+strconv.Itoa(other.ID), token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("non-admin cannot deactivate", func(t *testing.T) {
		active := false
		data := marshallObj(t, org.UpdateOrganization{IsActive: &active})
		req, rec := newAuthRequest(http.MethodPut, "/v1/organizations/"+strconv.Itoa(o.ID), token, data)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v, want %v", rec.Code, http.StatusForbidden)
		}
	})
}
