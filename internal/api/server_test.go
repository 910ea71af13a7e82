package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fieldline/intakeflow/internal/domain"
	"github.com/fieldline/intakeflow/internal/enrich"
	"github.com/fieldline/intakeflow/internal/nlp"
	"github.com/fieldline/intakeflow/internal/repository"
	"github.com/fieldline/intakeflow/internal/service"
	"github.com/fieldline/intakeflow/internal/storage"
)

func newTestServer() *httptest.Server {
	blobs := storage.NewMemoryStore()
	intake := service.NewIntakeService(
		repository.NewMemoryStore(),
		blobs,
		nlp.NewSlotFiller(),
		enrich.NewTextExtractor(blobs),
		4,
	)
	return httptest.NewServer(NewServer(intake, 0).Handler())
}

func doJSON(t *testing.T, method, url string, body any, wantStatus int) map[string]any {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d (body %v)", method, url, resp.StatusCode, wantStatus, decoded)
	}
	return decoded
}

func TestHealth(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	body := doJSON(t, "GET", ts.URL+"/api/v1/health", nil, http.StatusOK)
	if body["status"] != "ok" {
		t.Errorf("health = %v", body)
	}
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	created := doJSON(t, "POST", ts.URL+"/api/v1/sessions",
		map[string]string{"owner_id": "owner-1"}, http.StatusCreated)
	sessionID, _ := created["id"].(string)
	if sessionID == "" {
		t.Fatalf("no session id in %v", created)
	}

	base := ts.URL + "/api/v1/sessions/" + sessionID
	for _, text := range []string{"Invoice Automation", "Finance"} {
		turn := doJSON(t, "POST", base+"/turns", map[string]string{"text": text}, http.StatusOK)
		if turn["is_complete"] == true {
			t.Fatalf("complete too early after %q", text)
		}
	}
	turn := doJSON(t, "POST", base+"/turns", map[string]string{"text": "Automate AP matching"}, http.StatusOK)
	if turn["is_complete"] != true {
		t.Fatalf("not complete after description: %v", turn)
	}

	submitted := doJSON(t, "POST", base+"/submit", domain.IntakeFields{
		Title: "Invoice Automation", Department: "Finance",
		Description: "Automate AP matching", QueuePriority: "High",
	}, http.StatusOK)
	if submitted["status"] != string(domain.StatusSubmitted) {
		t.Fatalf("status after submit: %v", submitted["status"])
	}

	analysed := doJSON(t, "POST", base+"/analyse", nil, http.StatusOK)
	if analysed["status"] != string(domain.StatusAnalysed) {
		t.Fatalf("status after analyse: %v", analysed["status"])
	}
	if brief, _ := analysed["analysis_brief"].(string); brief == "" {
		t.Fatal("empty analysis brief")
	}

	promoted := doJSON(t, "POST", base+"/promote", nil, http.StatusCreated)
	if promoted["name"] != "Invoice Automation" || promoted["department"] != "Finance" {
		t.Fatalf("process record: %v", promoted)
	}
	processID, _ := promoted["id"].(string)

	rec := doJSON(t, "GET", ts.URL+"/api/v1/processes/"+processID, nil, http.StatusOK)
	if rec["name"] != "Invoice Automation" {
		t.Fatalf("fetched process: %v", rec)
	}

	// Double promote is rejected without creating a second record.
	doJSON(t, "POST", base+"/promote", nil, http.StatusConflict)
}

func TestErrorStatuses(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	doJSON(t, "GET", ts.URL+"/api/v1/sessions/unknown", nil, http.StatusNotFound)
	doJSON(t, "POST", ts.URL+"/api/v1/sessions", map[string]string{}, http.StatusBadRequest)

	created := doJSON(t, "POST", ts.URL+"/api/v1/sessions",
		map[string]string{"owner_id": "owner-1"}, http.StatusCreated)
	base := ts.URL + "/api/v1/sessions/" + created["id"].(string)

	// Missing required fields at submit.
	doJSON(t, "POST", base+"/submit", domain.IntakeFields{}, http.StatusUnprocessableEntity)
	// Promote from draft.
	doJSON(t, "POST", base+"/promote", nil, http.StatusConflict)
}

func TestUploadAndEnrichAttachment(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	created := doJSON(t, "POST", ts.URL+"/api/v1/sessions",
		map[string]string{"owner_id": "owner-1"}, http.StatusCreated)
	base := ts.URL + "/api/v1/sessions/" + created["id"].(string)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "runbook.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fmt.Fprint(fw, "step one: open the ledger")
	mw.Close()

	req, err := http.NewRequest("POST", base+"/attachments", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status %d", resp.StatusCode)
	}
	var att map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
		t.Fatalf("decode attachment: %v", err)
	}
	attID, _ := att["id"].(string)
	if attID == "" {
		t.Fatalf("no attachment id in %v", att)
	}

	enriched := doJSON(t, "POST", base+"/attachments/"+attID+"/enrich", nil, http.StatusOK)
	text, _ := enriched["enriched_text"].(string)
	if !strings.Contains(text, "open the ledger") {
		t.Fatalf("enriched text = %q", text)
	}

	// Second enrichment is rejected.
	doJSON(t, "POST", base+"/attachments/"+attID+"/enrich", nil, http.StatusConflict)
}

func TestExportFormats(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	created := doJSON(t, "POST", ts.URL+"/api/v1/sessions",
		map[string]string{"owner_id": "owner-1"}, http.StatusCreated)
	base := ts.URL + "/api/v1/sessions/" + created["id"].(string)
	doJSON(t, "POST", base+"/turns", map[string]string{"text": "Invoice Automation"}, http.StatusOK)

	for format, wantType := range map[string]string{
		"json": "application/json",
		"yaml": "application/yaml",
		"md":   "text/markdown",
	} {
		resp, err := http.Get(base + "/export?format=" + format)
		if err != nil {
			t.Fatalf("export %s: %v", format, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("export %s: status %d", format, resp.StatusCode)
		}
		if got := resp.Header.Get("Content-Type"); got != wantType {
			t.Errorf("export %s: content type %q, want %q", format, got, wantType)
		}
		resp.Body.Close()
	}

	resp, err := http.Get(base + "/export?format=xml")
	if err != nil {
		t.Fatalf("export xml: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unsupported format: status %d", resp.StatusCode)
	}
}

func TestListSessions(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	for i := 0; i < 2; i++ {
		doJSON(t, "POST", ts.URL+"/api/v1/sessions",
			map[string]string{"owner_id": "owner-x"}, http.StatusCreated)
	}

	resp, err := http.Get(ts.URL + "/api/v1/sessions?owner=owner-x")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	var sessions []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&sessions); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("want 2 sessions, got %d", len(sessions))
	}
}
