package admin

import (
	"github.com/linkway-core/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetCaptchaSettings 获取验证码配置（脱敏）
// 验证码配置来自配置文件与环境变量，管理端只读。
func (h *Handler) GetCaptchaSettings(c *gin.Context) {
	response.Success(c, h.CaptchaService.GetPublicSetting())
}
