package echoapi

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/studyplan/core/feedback"
	"github.com/trezcool/studyplan/testutil"
)

type feedbackResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    feedback.Feedback `json:"data"`
}

func Test_feedbackApi_submit(t *testing.T) {
	app := setup(t)
	ada := testutil.CreateUser(t, app.usrRepo, "Ada Lovelace", "ada@example.com", testPwd, true)
	grace := testutil.CreateUser(t, app.usrRepo, "Grace Hopper", "grace@example.com", testPwd, true)
	p := testutil.CreatePlan(t, app.planRepo, ada, "Compilers")
	token := app.getToken(t, ada)

	tests := []httpTest{
		{name: "auth required", body: []byte(`{}`), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingTokenBody)},
		{
			name: "missing fields", token: token, body: []byte(`{"feedback":"  "}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, validationErr(map[string]string{
				"studyPlanId": "studyPlanId is required",
				"rating":      "rating is required",
				"feedback":    "feedback is required",
			})),
		},
		{
			name: "rating out of range", token: token, body: []byte(`{"studyPlanId":"` + p.ID + `","rating":6,"feedback":"great"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, validationErr(map[string]string{"rating": "rating must be 5 or less"})),
		},
		{
			name: "unknown plan", token: token, body: []byte(`{"studyPlanId":"unknown","rating":5,"feedback":"great"}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFoundBody),
		},
		{
			name: "plan of another user", token: app.getToken(t, grace), body: []byte(`{"studyPlanId":"` + p.ID + `","rating":5,"feedback":"great"}`),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFoundBody),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/feedback"
	}
	runHTTPTests(t, app, tests)

	submit := func(t *testing.T, body string) feedback.Feedback {
		rec := app.serve(httpTest{method: http.MethodPost, path: "/v1/feedback", token: token, body: []byte(body)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp feedbackResponse
		unmarchall(t, rec, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, "Feedback submitted successfully", resp.Message)
		return resp.Data
	}

	first := submit(t, `{"studyPlanId":"`+p.ID+`","rating":4,"feedback":" Solid plan "}`)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, p.ID, first.StudyPlanID)
	assert.Equal(t, 4, first.Rating)
	assert.Equal(t, "Solid plan", first.Feedback)
	assert.True(t, first.Helpful, "helpful defaults to true")
	assert.Nil(t, first.Suggestions)

	t.Run("resubmission replaces", func(t *testing.T) {
		second := submit(t, `{"studyPlanId":"`+p.ID+`","rating":2,"feedback":"Too long","helpful":false,"suggestions":"shorter weeks"}`)
		assert.Equal(t, first.ID, second.ID)
		assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
		assert.Equal(t, 2, second.Rating)
		assert.False(t, second.Helpful)
		require.NotNil(t, second.Suggestions)
		assert.Equal(t, "shorter weeks", *second.Suggestions)

		fbs, err := app.fbRepo.QueryFeedback(context.Background(), ada.ID)
		require.NoError(t, err)
		assert.Len(t, fbs, 1)
	})
}

func Test_feedbackApi_retrieve(t *testing.T) {
	app := setup(t)
	ada := testutil.CreateUser(t, app.usrRepo, "Ada Lovelace", "ada@example.com", testPwd, true)
	grace := testutil.CreateUser(t, app.usrRepo, "Grace Hopper", "grace@example.com", testPwd, true)
	p := testutil.CreatePlan(t, app.planRepo, ada, "Compilers")
	other := testutil.CreatePlan(t, app.planRepo, ada, "Brewing")
	fb := testutil.CreateFeedback(t, app.fbRepo, ada, p, 5, true)
	token := app.getToken(t, ada)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodGet, path: "/v1/feedback?studyPlanId=" + p.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingTokenBody)},
		{
			name: "missing studyPlanId", method: http.MethodGet, path: "/v1/feedback", token: token, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, validationErr(map[string]string{"studyPlanId": "studyPlanId is required"})),
		},
		{name: "no feedback", method: http.MethodGet, path: "/v1/feedback?studyPlanId=" + other.ID, token: token, wantData: []byte(`{"success":true,"data":null}`)},
		{name: "feedback of another user", method: http.MethodGet, path: "/v1/feedback?studyPlanId=" + p.ID, token: app.getToken(t, grace), wantData: []byte(`{"success":true,"data":null}`)},
		{name: "feedback", method: http.MethodGet, path: "/v1/feedback?studyPlanId=" + p.ID, token: token, wantData: marchallData(t, fb)},
	})
}
