package http

import (
	"net/http"

	"intellicourse/http/handlers"
	"intellicourse/http/middleware"
	"intellicourse/http/services"
	"intellicourse/store"
)

// SetupRoutes wires every endpoint onto a mux with CORS applied.
func SetupRoutes(mux *http.ServeMux, svc *services.PaymentService, courses store.CourseStore) {
	paymentHandler := handlers.NewPaymentHandler(svc)
	courseHandler := handlers.NewCourseHandler(courses)
	adminHandler := handlers.NewAdminHandler(svc)

	mux.HandleFunc("POST /payments/process", middleware.EnableCORS(paymentHandler.ProcessPayment))
	mux.HandleFunc("GET /payments/methods", middleware.EnableCORS(paymentHandler.GetMethods))
	mux.HandleFunc("GET /payments/{id}/status", middleware.EnableCORS(paymentHandler.GetStatus))
	mux.HandleFunc("POST /payments/webhook/crypto", middleware.EnableCORS(paymentHandler.CryptoWebhook))
	mux.HandleFunc("POST /payments/confirm-eft", middleware.EnableCORS(paymentHandler.ConfirmEFT))
	mux.HandleFunc("GET /payments/currency/rates", middleware.EnableCORS(paymentHandler.CurrencyRates))

	mux.HandleFunc("GET /courses", middleware.EnableCORS(courseHandler.GetCourses))
	mux.HandleFunc("GET /courses/{id}", middleware.EnableCORS(courseHandler.GetCourseByID))
	mux.HandleFunc("GET /course", middleware.EnableCORS(courseHandler.GetCourseByID))
	mux.HandleFunc("POST /courses", middleware.EnableCORS(courseHandler.CreateCourse))

	mux.HandleFunc("GET /admin/payments", middleware.EnableCORS(adminHandler.ListPayments))
	mux.HandleFunc("GET /admin/payouts", middleware.EnableCORS(adminHandler.ListPayouts))
	mux.HandleFunc("GET /admin/payments/export", middleware.EnableCORS(adminHandler.ExportPayments))

	mux.HandleFunc("GET /health", middleware.EnableCORS(handlers.Health))
}
