package views

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/GrainArc/TinFlow/services"
	"github.com/gin-gonic/gin"
)

type OutputController struct {
	outputs *services.OutputService
}

func NewOutputController(outputs *services.OutputService) *OutputController {
	return &OutputController{outputs: outputs}
}

func outputStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrOutsideRoot):
		return http.StatusForbidden
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, os.ErrInvalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// List 输出目录内容（懒加载）
func (oc *OutputController) List(c *gin.Context) {
	content, err := oc.outputs.List(c.Query("path"))
	if err != nil {
		c.JSON(outputStatus(err), gin.H{
			"code": -1,
			"data": nil,
			"msg":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": content,
		"msg":  "success",
	})
}

// Download 下载单个输出文件
func (oc *OutputController) Download(c *gin.Context) {
	path, err := oc.outputs.Resolve(c.Query("path"))
	if err == nil {
		var info os.FileInfo
		if info, err = os.Stat(path); err == nil && info.IsDir() {
			err = os.ErrInvalid
		}
	}
	if err != nil {
		c.JSON(outputStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
