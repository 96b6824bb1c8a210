package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/E011011101001/HEAL-backend/internal/auth"
	"github.com/E011011101001/HEAL-backend/internal/config"
	"github.com/E011011101001/HEAL-backend/internal/metrics"
	"github.com/E011011101001/HEAL-backend/internal/mw"
	"github.com/E011011101001/HEAL-backend/internal/ws"
)

// SetupRouter 组装全部路由。除注册、登录和健康检查外都要求 Bearer token。
func SetupRouter(cfg config.Config, db *gorm.DB, h *Handlers, hub *ws.Hub, sessions *ws.SessionManager) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mw.CORS(cfg.Env))
	r.Use(metrics.GinMiddleware())
	r.Use(mw.RateLimit(50, 100))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/users/register", h.Register)
	r.POST("/users/login", h.Login)
	r.POST("/users/refresh", h.Refresh)

	authed := r.Group("/", auth.AuthMiddleware(cfg, db))
	{
		authed.GET("/users/verify-token", h.VerifyToken)
		authed.GET("/users/:userId", h.GetUser)
		authed.PUT("/users/:userId", h.UpdateUser)
		authed.DELETE("/users/:userId", h.DeleteUser)

		authed.POST("/chats/rooms", h.CreateRoom)
		authed.GET("/chats/rooms", h.ListRooms)
		authed.GET("/chats/rooms/:roomId", h.GetRoom)
		authed.DELETE("/chats/rooms/:roomId", h.DeleteRoom)
		authed.POST("/chats/rooms/:roomId/participants/:userId", h.AddParticipant)
		authed.DELETE("/chats/rooms/:roomId/participants/:userId", h.RemoveParticipant)

		authed.GET("/chats/rooms/:roomId/messages", h.ListMessages)
		authed.GET("/chats/rooms/:roomId/messages/:messageId", h.GetMessage)
		authed.POST("/chats/rooms/:roomId/messages/:messageId/medical-terms/:termId", h.LinkMessageTerm)
		authed.DELETE("/chats/rooms/:roomId/messages/:messageId/medical-terms/:termId", h.UnlinkMessageTerm)

		authed.POST("/medical-terms", h.CreateTerm)
		authed.GET("/medical-terms", h.ListTerms)
		authed.GET("/medical-terms/:termId", h.GetTerm)
		authed.PUT("/medical-terms/:termId", h.UpdateTerm)
		authed.DELETE("/medical-terms/:termId", h.DeleteTerm)

		authed.GET("/patients/:userId/medical-history", h.GetMedicalHistory)
		authed.POST("/patients/:userId/medical-history/conditions", h.AddCondition)
		authed.DELETE("/medical-history/conditions/:conditionId", h.DeleteCondition)
		authed.POST("/medical-history/conditions/:conditionId/prescriptions", h.AddPrescription)
		authed.DELETE("/medical-history/prescriptions/:prescriptionId", h.DeletePrescription)
	}

	// websocket 握手自带 token，不走 REST 鉴权中间件
	r.GET("/ws", ws.Handler(hub, sessions))

	return r
}
