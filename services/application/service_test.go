package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ftc-platform/pkg/errutil"
	"ftc-platform/pkg/middleware"
	"ftc-platform/services/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedApplication(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&Event{ID: "ev1", Name: "Demo Day", Slug: "demo-day"}).Error)
	require.NoError(t, db.Create(&Application{ID: "app1", EventID: "ev1", UserID: "u1", Status: StatusSubmitted}).Error)
	for _, q := range skillsForm() {
		q.EventID = "ev1"
		require.NoError(t, db.Create(&q).Error)
	}
	require.NoError(t, db.Create(&Response{ID: "r1", ApplicationID: "app1", QuestionID: "q1", Answer: "Ada"}).Error)
	require.NoError(t, db.Create(&Response{ID: "r2", ApplicationID: "app1", QuestionID: "q2", Answer: `["Other"]`}).Error)
}

func TestGetCompletion(t *testing.T) {
	db := testutil.NewTestDB(t, &Event{}, &Application{}, &Question{}, &Response{})
	seedApplication(t, db)
	svc := NewService(ServiceParams{DB: db})

	got, err := svc.GetCompletion(context.Background(), "app1")
	require.NoError(t, err)
	require.Equal(t, 3, got.TotalFields)
	require.Equal(t, 2, got.CompletedFields)
	require.Equal(t, []string{"technical_skills_other"}, got.MissingFields)
}

func TestGetCompletionNotFound(t *testing.T) {
	db := testutil.NewTestDB(t, &Event{}, &Application{}, &Question{}, &Response{})
	svc := NewService(ServiceParams{DB: db})

	_, err := svc.GetCompletion(context.Background(), "missing")
	require.True(t, errutil.IsCode(err, errutil.StatusNotFound))

	_, err = svc.GetCompletion(context.Background(), " ")
	require.True(t, errutil.IsCode(err, errutil.StatusBadRequest))
}

func TestHandlerGetCompletion(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.NewTestDB(t, &Event{}, &Application{}, &Question{}, &Response{})
	seedApplication(t, db)

	r := gin.New()
	r.Use(middleware.Error())
	NewHandler(NewService(ServiceParams{DB: db})).Register(r)

	do := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/applications/app1/completion", nil)
		if user != "" {
			req.Header.Set(middleware.HeaderUserID, user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	require.Equal(t, http.StatusUnauthorized, do("").Code)
	require.Equal(t, http.StatusForbidden, do("someone-else").Code)

	w := do("u1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"completionPercentage":67`)
}
