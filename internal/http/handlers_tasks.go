package http

import (
	"net/http"
	"time"

	"budgetd/internal/core"
	"budgetd/internal/dates"
)

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var payload taskPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := payload.toTask(core.NewID(), dates.FormatStamp(time.Now()))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.store.Dispatch(core.AddTask{Task: task})
	s.writeState(w, http.StatusCreated)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, ok := findTask(s.store.State().Tasks, id)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var payload taskPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := payload.toTask(id, existing.CreatedAt)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.store.Dispatch(core.UpdateTask{Task: task})
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := findTask(s.store.State().Tasks, id); !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	s.store.Dispatch(core.DeleteTask{ID: id})
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := findTask(s.store.State().Tasks, id); !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	s.store.Dispatch(core.ToggleTask{ID: id})
	s.writeState(w, http.StatusOK)
}

func findTask(tasks []core.Task, id string) (core.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return core.Task{}, false
}
