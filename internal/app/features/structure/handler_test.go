package structure_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	"github.com/dalemusser/catalog/internal/app/features/structure"
	"github.com/dalemusser/catalog/internal/app/store/audit"
	"github.com/dalemusser/catalog/internal/app/store/clipboard"
	"github.com/dalemusser/catalog/internal/app/system/auditlog"
	"github.com/dalemusser/catalog/internal/app/system/authz"
	"github.com/dalemusser/catalog/internal/domain/models"
	"github.com/dalemusser/catalog/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var editor = models.Person{
	UserID:      "editor",
	Roles:       []string{models.RoleCentralManager},
	Permissions: []string{models.PermChangeEducationGroup},
}

func newHandler(db *mongo.Database) *structure.Handler {
	logger := zap.NewNop()
	al := auditlog.New(audit.New(db), logger, auditlog.Config{Postponement: "db", Structure: "db"})
	return structure.NewHandler(db, clipboard.New(db, time.Hour), academiccal.New(db, 6), al, logger)
}

func selectReq(kind, id string) *http.Request {
	req := testutil.NewJSONRequest("POST", "/clipboard/select", map[string]string{"kind": kind, "id": id})
	return authz.WithPerson(req, editor)
}

func attachReq(parentID string, p models.Person) *http.Request {
	req := testutil.NewRequest("POST", "/clipboard/attach/"+parentID)
	return authz.WithPerson(testutil.WithChiURLParam(req, "parentID", parentID), p)
}

func edgeReq(method, edgeID string) *http.Request {
	req := testutil.NewRequest(method, "/edges/"+edgeID)
	return authz.WithPerson(testutil.WithChiURLParam(req, "edgeID", edgeID), editor)
}

func TestSelectAndAttach(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.Training(ctx, "DROI1BA", 2018)
	luy := fx.LearningUnitYear(ctx, "LDRO1001", 2018)
	h := newHandler(db)

	t.Run("invalid kind", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeSelect(rec, selectReq("course", luy.ID.Hex()))
		rec.AssertStatus(t, http.StatusBadRequest)
	})

	t.Run("unknown object", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeSelect(rec, selectReq(string(clipboard.KindEducationGroupYear), luy.ID.Hex()))
		rec.AssertStatus(t, http.StatusNotFound)
	})

	t.Run("select then read back", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeSelect(rec, selectReq(string(clipboard.KindLearningUnitYear), luy.ID.Hex()))
		rec.AssertStatus(t, http.StatusOK)

		rec = testutil.NewRecorder()
		h.ServeClipboard(rec, authz.WithPerson(testutil.NewRequest("GET", "/clipboard"), editor))
		rec.AssertStatus(t, http.StatusOK)
		rec.AssertContains(t, luy.ID.Hex())
	})

	t.Run("attach needs permission", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeAttach(rec, attachReq(root.ID.Hex(), models.Person{UserID: editor.UserID}))
		rec.AssertStatus(t, http.StatusForbidden)
	})

	t.Run("attach creates the edge", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeAttach(rec, attachReq(root.ID.Hex(), editor))
		rec.AssertStatus(t, http.StatusCreated)
		rec.AssertContains(t, `"child_leaf_id":"`+luy.ID.Hex()+`"`)
	})

	t.Run("clipboard is emptied", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeAttach(rec, attachReq(root.ID.Hex(), editor))
		rec.AssertStatus(t, http.StatusNotFound)
	})
}

func TestClear(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	luy := fx.LearningUnitYear(ctx, "LDRO1001", 2018)
	h := newHandler(db)

	rec := testutil.NewRecorder()
	h.ServeSelect(rec, selectReq(string(clipboard.KindLearningUnitYear), luy.ID.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.ServeClear(rec, authz.WithPerson(testutil.NewRequest("DELETE", "/clipboard"), editor))
	rec.AssertStatus(t, http.StatusNoContent)

	rec = testutil.NewRecorder()
	h.ServeClipboard(rec, authz.WithPerson(testutil.NewRequest("GET", "/clipboard"), editor))
	rec.AssertContains(t, `"selection":null`)
}

func TestMoveAndDetach(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.EnsureSchema(t, db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	root := fx.Training(ctx, "DROI1BA", 2018)
	first := fx.Leaf(ctx, root, fx.LearningUnitYear(ctx, "LDRO1001", 2018))
	second := fx.Leaf(ctx, root, fx.LearningUnitYear(ctx, "LDRO1002", 2018))
	h := newHandler(db)

	t.Run("down swaps with the next sibling", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeDown(rec, edgeReq("POST", first.ID.Hex()))
		rec.AssertStatus(t, http.StatusOK)
		rec.AssertContains(t, `"order":1`)
	})

	t.Run("down at the end is a no-op", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeDown(rec, edgeReq("POST", first.ID.Hex()))
		rec.AssertStatus(t, http.StatusOK)
		rec.AssertContains(t, `"order":1`)
	})

	t.Run("up restores the order", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeUp(rec, edgeReq("POST", first.ID.Hex()))
		rec.AssertStatus(t, http.StatusOK)
		rec.AssertContains(t, `"order":0`)
	})

	t.Run("detach", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeDetach(rec, edgeReq("DELETE", second.ID.Hex()))
		rec.AssertStatus(t, http.StatusOK)

		rec = testutil.NewRecorder()
		h.ServeDetach(rec, edgeReq("DELETE", second.ID.Hex()))
		rec.AssertStatus(t, http.StatusNotFound)
	})
}
