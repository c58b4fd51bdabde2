package handlers

import (
	"net/http"
	"strconv"

	"todoapi/database"
	"todoapi/models"
	"todoapi/utils"
)

// Same rules as the title and priority tags on models.TaskCreate.
const (
	titleRule    = "notblank,max=255"
	priorityRule = "oneof=low medium high"
)

// ListTasksHandler lists the caller's tasks, optionally narrowed by
// ?completed=true|false and ?priority=low|medium|high.
func ListTasksHandler(w http.ResponseWriter, r *http.Request, db *database.DB) {
	userID, _ := UserID(r.Context())
	q := r.URL.Query()

	var filter models.TaskFilter
	if raw := q.Get("completed"); raw != "" {
		completed, err := strconv.ParseBool(raw)
		if err != nil {
			writeValidation(w, utils.FieldError{Field: "completed", Message: "must be true or false"})
			return
		}
		filter.Completed = &completed
	}
	if raw := q.Get("priority"); raw != "" {
		if errs := utils.ValidateVar("priority", raw, priorityRule); len(errs) > 0 {
			writeValidation(w, errs...)
			return
		}
		filter.Priority = raw
	}

	tasks, err := db.ListTasks(r.Context(), userID, filter)
	if err != nil {
		writeDBError(w, r, err, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func CreateTaskHandler(w http.ResponseWriter, r *http.Request, db *database.DB) {
	userID, _ := UserID(r.Context())

	var req models.TaskCreate
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := db.CreateTask(r.Context(), models.Task{
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeDBError(w, r, err, "Task not found")
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func GetTaskHandler(w http.ResponseWriter, r *http.Request, db *database.DB) {
	userID, _ := UserID(r.Context())
	taskID, ok := pathID(w, r, "task_id")
	if !ok {
		return
	}

	task, err := db.GetTask(r.Context(), taskID, userID)
	if err != nil {
		writeDBError(w, r, err, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTaskHandler applies a partial update; fields absent from the body are kept.
func UpdateTaskHandler(w http.ResponseWriter, r *http.Request, db *database.DB) {
	userID, _ := UserID(r.Context())
	taskID, ok := pathID(w, r, "task_id")
	if !ok {
		return
	}

	var req models.TaskUpdate
	if !decodeAndValidate(w, r, &req) {
		return
	}
	// omitempty lets an explicit "" through, so present fields are checked
	// again with the rules TaskCreate uses.
	var errs []utils.FieldError
	if req.Title != nil {
		errs = append(errs, utils.ValidateVar("title", *req.Title, titleRule)...)
	}
	if req.Priority != nil {
		errs = append(errs, utils.ValidateVar("priority", *req.Priority, priorityRule)...)
	}
	if len(errs) > 0 {
		writeValidation(w, errs...)
		return
	}

	task, err := db.UpdateTask(r.Context(), taskID, userID, req)
	if err != nil {
		writeDBError(w, r, err, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func DeleteTaskHandler(w http.ResponseWriter, r *http.Request, db *database.DB) {
	userID, _ := UserID(r.Context())
	taskID, ok := pathID(w, r, "task_id")
	if !ok {
		return
	}

	if err := db.DeleteTask(r.Context(), taskID, userID); err != nil {
		writeDBError(w, r, err, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, models.Message{Message: "Task deleted"})
}
