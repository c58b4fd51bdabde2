package handlers

import (
	"net/http"

	"todoapi/database"
	"todoapi/logger"
	"todoapi/models"
)

// Tag routes take the owner from ?user_id= and trust it as given.

func CreateTagHandler(w http.ResponseWriter, r *http.Request, db *database.DB) {
	userID, ok := queryID(w, r, "user_id")
	if !ok {
		return
	}

	var req models.TagCreate
	if !decodeAndValidate(w, r, &req) {
		return
	}

	tag, err := db.CreateTag(r.Context(), userID, req.Name, req.Color)
	if err != nil {
		writeDBError(w, r, err, "Tag not found")
		return
	}
	logger.InfoContext(r.Context(), "tag created", "tag_id", tag.ID, "user_id", userID)
	writeJSON(w, http.StatusOK, tag)
}

func ListTagsHandler(w http.ResponseWriter, r *http.Request, db *database.DB) {
	userID, ok := queryID(w, r, "user_id")
	if !ok {
		return
	}

	tags, err := db.ListTags(r.Context(), userID)
	if err != nil {
		writeDBError(w, r, err, "Tag not found")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func DeleteTagHandler(w http.ResponseWriter, r *http.Request, db *database.DB) {
	tagID, ok := pathID(w, r, "tag_id")
	if !ok {
		return
	}
	userID, ok := queryID(w, r, "user_id")
	if !ok {
		return
	}

	if err := db.DeleteTag(r.Context(), tagID, userID); err != nil {
		writeDBError(w, r, err, "Tag not found")
		return
	}
	logger.InfoContext(r.Context(), "tag deleted", "tag_id", tagID, "user_id", userID)
	writeJSON(w, http.StatusOK, models.Message{Message: "Tag deleted"})
}
