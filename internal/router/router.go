package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sudooom.im.typing/internal/config"
	"sudooom.im.typing/internal/handler"
	"sudooom.im.typing/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(cfg config.ServerConfig, typingHandler *handler.TypingHandler, ws http.Handler) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	v1 := r.Group("/api/v1")
	{
		compose := v1.Group("/compose")
		{
			compose.POST("/input", typingHandler.ComposeInput)
			compose.PUT("/recipient", typingHandler.SetComposeRecipient)
			compose.POST("/close", typingHandler.ComposeClose)
			compose.GET("/outstanding", typingHandler.Outstanding)
		}

		v1.PUT("/narrow", typingHandler.SetNarrow)
		v1.GET("/typing", typingHandler.GetTyping)
		v1.POST("/events/typing", typingHandler.PostEvent)

		if ws != nil {
			v1.GET("/ws", gin.WrapH(ws))
		}
	}

	return r
}
