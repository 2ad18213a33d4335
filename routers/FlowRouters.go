package routers

import (
	"github.com/GrainArc/TinFlow/metrics"
	"github.com/GrainArc/TinFlow/services"
	"github.com/GrainArc/TinFlow/views"
	"github.com/gin-gonic/gin"
)

func FlowRouters(r *gin.Engine, flow *services.FlowService, reg *metrics.Registry) {
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	r.Use(CORS(), Metrics(reg))

	flowCtrl := views.NewFlowController(flow)
	traceHandler := views.NewTraceHandler(flow)
	outputCtrl := views.NewOutputController(services.NewOutputService(flow.WorkDir()))
	flowRouter := r.Group("/flow")
	{
		flowRouter.POST("/enrich", flowCtrl.Enrich)
		flowRouter.POST("/downhill", flowCtrl.Downhill)
		flowRouter.POST("/path", flowCtrl.Path)
		flowRouter.POST("/accumulation", flowCtrl.Accumulation)
		flowRouter.POST("/layers/:layer", flowCtrl.Layer)
		flowRouter.POST("/preview", flowCtrl.Preview)

		flowRouter.POST("/run", flowCtrl.Run)
		flowRouter.GET("/runs", flowCtrl.Runs)

		flowRouter.GET("/trace", traceHandler.Trace)

		flowRouter.GET("/outputs", outputCtrl.List)
		flowRouter.GET("/outputs/file", outputCtrl.Download)
	}

	r.GET("/metrics", gin.WrapH(reg.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
