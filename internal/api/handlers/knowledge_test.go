package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/safeboy/safeboy/internal/domain/knowledge"
	"github.com/safeboy/safeboy/internal/infra/sqlite/sqlitetest"
)

func newTestKnowledgeHandler(t *testing.T) (*KnowledgeHandler, string, string) {
	t.Helper()
	db := sqlitetest.Open(t)
	return NewKnowledgeHandler(knowledge.NewDocumentService(db, nil)),
		sqlitetest.CreateTenant(t, db), sqlitetest.CreateTenant(t, db)
}

func TestKnowledgeHandler_DocumentLifecycle(t *testing.T) {
	h, tenant, _ := newTestKnowledgeHandler(t)

	rr := httptest.NewRecorder()
	h.CreateDocument(rr, withTenant(jsonRequest(t, http.MethodPost, "/", DocumentRequest{
		Title: "NR-12", Content: "Máquinas e equipamentos.", Tags: []string{"máquinas"},
	}), tenant))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rr.Code, rr.Body.String())
	}
	created := decodeBody[knowledge.Document](t, rr)

	rr = httptest.NewRecorder()
	h.GetDocument(rr, withURLParam(withTenant(httptest.NewRequest(http.MethodGet, "/", nil), tenant), "id", created.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("get status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.UpdateDocument(rr, withURLParam(withTenant(jsonRequest(t, http.MethodPut, "/", DocumentRequest{
		Title: "NR-12 atualizada", Content: "Proteções fixas.",
	}), tenant), "id", created.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rr.Code, rr.Body.String())
	}
	if got := decodeBody[knowledge.Document](t, rr); got.Title != "NR-12 atualizada" {
		t.Errorf("title = %q", got.Title)
	}

	rr = httptest.NewRecorder()
	h.ListDocuments(rr, withTenant(httptest.NewRequest(http.MethodGet, "/?limit=10", nil), tenant))
	list := decodeBody[struct {
		Data []knowledge.Document `json:"data"`
		Meta paginationMeta       `json:"meta"`
	}](t, rr)
	if len(list.Data) != 1 || list.Meta.Total != 1 || list.Meta.Limit != 10 {
		t.Errorf("list = %+v", list)
	}

	rr = httptest.NewRecorder()
	h.DeleteDocument(rr, withURLParam(withTenant(httptest.NewRequest(http.MethodDelete, "/", nil), tenant), "id", created.ID))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
}

func TestKnowledgeHandler_OtherTenantGets404(t *testing.T) {
	h, tenantA, tenantB := newTestKnowledgeHandler(t)

	rr := httptest.NewRecorder()
	h.CreateDocument(rr, withTenant(jsonRequest(t, http.MethodPost, "/", DocumentRequest{Title: "Privado", Content: "x"}), tenantA))
	doc := decodeBody[knowledge.Document](t, rr)

	rr = httptest.NewRecorder()
	h.GetDocument(rr, withURLParam(withTenant(httptest.NewRequest(http.MethodGet, "/", nil), tenantB), "id", doc.ID))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", rr.Code)
	}
}

func TestKnowledgeHandler_Validation(t *testing.T) {
	h, tenant, _ := newTestKnowledgeHandler(t)
	missing := "missing-category"

	tests := []struct {
		name string
		body DocumentRequest
	}{
		{name: "no title", body: DocumentRequest{Content: "x"}},
		{name: "unknown category", body: DocumentRequest{Title: "t", CategoryID: &missing}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.CreateDocument(rr, withTenant(jsonRequest(t, http.MethodPost, "/", tt.body), tenant))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d; want 400", rr.Code)
			}
		})
	}
}

func TestKnowledgeHandler_Categories(t *testing.T) {
	h, tenant, _ := newTestKnowledgeHandler(t)

	create := func() int {
		rr := httptest.NewRecorder()
		h.CreateCategory(rr, withTenant(jsonRequest(t, http.MethodPost, "/", CategoryRequest{Name: "EPI"}), tenant))
		return rr.Code
	}
	if code := create(); code != http.StatusCreated {
		t.Fatalf("create status = %d", code)
	}
	if code := create(); code != http.StatusConflict {
		t.Errorf("duplicate status = %d; want 409", code)
	}

	rr := httptest.NewRecorder()
	h.ListCategories(rr, withTenant(httptest.NewRequest(http.MethodGet, "/", nil), tenant))
	list := decodeBody[struct {
		Data []knowledge.Category `json:"data"`
	}](t, rr)
	if len(list.Data) != 1 || list.Data[0].Name != "EPI" {
		t.Errorf("categories = %+v", list.Data)
	}
}
