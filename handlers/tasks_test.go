package handlers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"todoapi/models"
)

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.registerAndLogin(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/tasks/", map[string]string{"title": "Write report", "description": "quarterly"}, token)
	wantStatus(t, rec, http.StatusCreated)
	task := decode[models.Task](t, rec)
	if task.ID == 0 || task.UserID != userID || task.Completed || task.Priority != models.PriorityMedium {
		t.Fatalf("created task = %+v", task)
	}

	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	rec = s.do(t, http.MethodGet, path, nil, token)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[models.Task](t, rec); got.Title != "Write report" || got.Description != "quarterly" {
		t.Errorf("GET task = %+v", got)
	}

	rec = s.do(t, http.MethodPatch, path, map[string]bool{"completed": true}, token)
	wantStatus(t, rec, http.StatusOK)
	updated := decode[models.Task](t, rec)
	if !updated.Completed || updated.Title != "Write report" {
		t.Errorf("PATCH task = %+v", updated)
	}
	if updated.UpdatedAt.Before(task.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards: %v < %v", updated.UpdatedAt, task.UpdatedAt)
	}

	rec = s.do(t, http.MethodPut, path, map[string]string{"title": "Final report", "priority": "high"}, token)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[models.Task](t, rec); got.Title != "Final report" || got.Priority != "high" || !got.Completed {
		t.Errorf("PUT task = %+v", got)
	}

	rec = s.do(t, http.MethodDelete, path, nil, token)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[models.Message](t, rec).Message; got != "Task deleted" {
		t.Errorf("delete message = %q", got)
	}

	rec = s.do(t, http.MethodGet, path, nil, token)
	wantStatus(t, rec, http.StatusNotFound)
	if got := decode[errorBody](t, rec).Detail; got != "Task not found" {
		t.Errorf("detail = %q", got)
	}
}

func TestTaskValidation(t *testing.T) {
	s := newTestServer(t)
	_, token := s.registerAndLogin(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/tasks/", map[string]string{"title": "Keep"}, token)
	wantStatus(t, rec, http.StatusCreated)
	path := fmt.Sprintf("/api/tasks/%d", decode[models.Task](t, rec).ID)

	tests := []struct {
		name      string
		method    string
		path      string
		body      any
		wantField string
	}{
		{name: "Create without title", method: http.MethodPost, path: "/api/tasks/", body: map[string]string{"description": "x"}, wantField: "title"},
		{name: "Create with blank title", method: http.MethodPost, path: "/api/tasks/", body: map[string]string{"title": "   "}, wantField: "title"},
		{name: "Create with bad priority", method: http.MethodPost, path: "/api/tasks/", body: map[string]string{"title": "x", "priority": "urgent"}, wantField: "priority"},
		{name: "Update to empty title", method: http.MethodPatch, path: path, body: map[string]string{"title": ""}, wantField: "title"},
		{name: "Update to empty priority", method: http.MethodPatch, path: path, body: map[string]string{"priority": ""}, wantField: "priority"},
		{name: "Non-numeric id", method: http.MethodGet, path: "/api/tasks/abc", wantField: "task_id"},
		{name: "Bad completed filter", method: http.MethodGet, path: "/api/tasks/?completed=maybe", wantField: "completed"},
		{name: "Bad priority filter", method: http.MethodGet, path: "/api/tasks/?priority=urgent", wantField: "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body, token)
			wantStatus(t, rec, http.StatusUnprocessableEntity)
			body := decode[errorBody](t, rec)
			if len(body.Errors) == 0 || body.Errors[0].Field != tt.wantField {
				t.Errorf("errors = %+v, want field %q", body.Errors, tt.wantField)
			}
		})
	}

	rec = s.do(t, http.MethodGet, path, nil, token)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[models.Task](t, rec); got.Title != "Keep" {
		t.Errorf("rejected update changed the task: %+v", got)
	}
}

func TestTaskListFilters(t *testing.T) {
	s := newTestServer(t)
	_, token := s.registerAndLogin(t, "alice")

	for _, body := range []map[string]string{
		{"title": "a", "priority": "low"},
		{"title": "b", "priority": "high"},
		{"title": "c"},
	} {
		wantStatus(t, s.do(t, http.MethodPost, "/api/tasks/", body, token), http.StatusCreated)
	}

	rec := s.do(t, http.MethodGet, "/api/tasks/", nil, token)
	wantStatus(t, rec, http.StatusOK)
	all := decode[[]models.Task](t, rec)
	if len(all) != 3 {
		t.Fatalf("listed %d tasks, want 3", len(all))
	}
	wantStatus(t, s.do(t, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", all[0].ID), map[string]bool{"completed": true}, token), http.StatusOK)

	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{"a", "b", "c"}},
		{query: "?completed=true", want: []string{"a"}},
		{query: "?completed=false", want: []string{"b", "c"}},
		{query: "?priority=high", want: []string{"b"}},
		{query: "?completed=true&priority=high", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/tasks/"+tt.query, nil, token)
			wantStatus(t, rec, http.StatusOK)
			tasks := decode[[]models.Task](t, rec)
			if len(tasks) != len(tt.want) {
				t.Fatalf("got %d tasks, want %v", len(tasks), tt.want)
			}
			for i, task := range tasks {
				if task.Title != tt.want[i] {
					t.Errorf("task[%d] = %q, want %q", i, task.Title, tt.want[i])
				}
			}
		})
	}
}

func TestTaskListEmptyIsArray(t *testing.T) {
	s := newTestServer(t)
	_, token := s.registerAndLogin(t, "alice")

	rec := s.do(t, http.MethodGet, "/api/tasks", nil, token)
	wantStatus(t, rec, http.StatusOK)
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestTaskOwnership(t *testing.T) {
	s := newTestServer(t)
	_, alice := s.registerAndLogin(t, "alice")
	_, bob := s.registerAndLogin(t, "bob")

	rec := s.do(t, http.MethodPost, "/api/tasks/", map[string]string{"title": "Private"}, alice)
	wantStatus(t, rec, http.StatusCreated)
	path := fmt.Sprintf("/api/tasks/%d", decode[models.Task](t, rec).ID)

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			var body any
			if method == http.MethodPatch {
				body = map[string]string{"title": "Stolen"}
			}
			wantStatus(t, s.do(t, method, path, body, bob), http.StatusNotFound)
		})
	}

	rec = s.do(t, http.MethodGet, "/api/tasks/", nil, bob)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[[]models.Task](t, rec); len(got) != 0 {
		t.Errorf("bob sees %d of alice's tasks", len(got))
	}

	rec = s.do(t, http.MethodGet, path, nil, alice)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[models.Task](t, rec); got.Title != "Private" {
		t.Errorf("task changed by another user: %+v", got)
	}
}

func TestUpdateAcceptsTitleCreateAccepts(t *testing.T) {
	s := newTestServer(t)
	_, token := s.registerAndLogin(t, "alice")
	title := strings.Repeat("é", 200)

	rec := s.do(t, http.MethodPost, "/api/tasks/", map[string]string{"title": title}, token)
	wantStatus(t, rec, http.StatusCreated)
	path := fmt.Sprintf("/api/tasks/%d", decode[models.Task](t, rec).ID)

	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			rec := s.do(t, method, path, map[string]string{"title": title}, token)
			wantStatus(t, rec, http.StatusOK)
			if got := decode[models.Task](t, rec).Title; got != title {
				t.Errorf("title = %q, want %q", got, title)
			}
		})
	}

	rec = s.do(t, http.MethodPatch, path, map[string]string{"title": strings.Repeat("é", 256)}, token)
	wantStatus(t, rec, http.StatusUnprocessableEntity)
	body := decode[errorBody](t, rec)
	if len(body.Errors) != 1 || body.Errors[0].Message != "must be at most 255 characters" {
		t.Errorf("errors = %+v", body.Errors)
	}
}
