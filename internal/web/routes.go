package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.service, s.log)
	attendanceHandler := handlers.NewAttendanceHandler(s.reporter, s.log)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Faces
		r.Post("/faces/register", facesHandler.Register)
		r.Post("/faces/verify", facesHandler.Verify)
		r.Get("/students/{id}/face", facesHandler.Status)
		r.Delete("/students/{id}/face", facesHandler.Delete)

		// Attendance
		r.Get("/attendance/today", attendanceHandler.Today)
		r.Get("/classes/{id}/attendance", attendanceHandler.ByClass)
		r.Get("/classes/{id}/attendance/summary", attendanceHandler.Summary)
	})
}
