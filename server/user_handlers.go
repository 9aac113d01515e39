package server

import (
	"encoding/json"
	"net/http"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	SMS      string `json:"sms"`
	Password string `json:"password"`
}

// ListUsersHandler returns every user in the directory.
func (s *Server) ListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := s.storeContext(r.Context())
		defer cancel()

		userList, err := s.userSvc.GetUsers(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, userList)
	}
}

// GetUserHandler returns a single user by id.
func (s *Server) GetUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := s.storeContext(r.Context())
		defer cancel()

		user, err := s.userSvc.GetUser(ctx, r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// CreateUserHandler adds a user to the directory. Policy violations come
// back as a 400 with the full ordered violation list.
func (s *Server) CreateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}

		ctx, cancel := s.storeContext(r.Context())
		defer cancel()

		user, err := s.userSvc.AddUser(ctx, req.Name, req.Email, req.SMS, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}
