package controller

import (
	"errors"
	"net/http"

	"edubridge_backend/internal/attempt"
	"edubridge_backend/internal/util"
	"edubridge_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type AttemptController struct {
	Manager *attempt.Manager
}

func NewAttemptController(manager *attempt.Manager) *AttemptController {
	return &AttemptController{Manager: manager}
}

type SelectAnswerReq struct {
	QuestionIndex *int `json:"questionIndex" binding:"required"`
	OptionIndex   *int `json:"optionIndex" binding:"required"`
}

type ToggleFlagReq struct {
	QuestionIndex *int `json:"questionIndex" binding:"required"`
}

type NavigateReq struct {
	QuestionIndex *int `json:"questionIndex" binding:"required"`
}

// @Summary 开始测验答题
// @Tags 测验模块
// @Produce json
// @Security BearerAuth
// @Param id path int true "测验ID"
// @Success 201 {object} util.Response
// @Router /api/quizzes/{id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quizID, ok := parseUintParam(ctx, "id")
	if !ok {
		return
	}

	session, err := c.Manager.Start(ctx.Request.Context(), quizID, user.UserID)
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"attemptId": session.ID,
		"quiz":      session.Def,
		"state":     session.State(),
	})
}

// @Summary 查询答题状态
// @Tags 测验模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "答题ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [get]
func (c *AttemptController) GetState(ctx *gin.Context) {
	session, ok := c.ownedSession(ctx)
	if !ok {
		return
	}
	util.Success(ctx, session.State())
}

// @Summary 选择答案
// @Tags 测验模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "答题ID"
// @Param body body SelectAnswerReq true "题目下标与选项下标"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/answer [put]
func (c *AttemptController) SelectAnswer(ctx *gin.Context) {
	session, ok := c.ownedSession(ctx)
	if !ok {
		return
	}

	var req SelectAnswerReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := session.SelectAnswer(*req.QuestionIndex, *req.OptionIndex); err != nil {
		c.respondError(ctx, err)
		return
	}

	util.Success(ctx, session.State())
}

// @Summary 标记/取消标记题目
// @Tags 测验模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "答题ID"
// @Param body body ToggleFlagReq true "题目下标"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/flag [put]
func (c *AttemptController) ToggleFlag(ctx *gin.Context) {
	session, ok := c.ownedSession(ctx)
	if !ok {
		return
	}

	var req ToggleFlagReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := session.ToggleFlag(*req.QuestionIndex); err != nil {
		c.respondError(ctx, err)
		return
	}

	util.Success(ctx, session.State())
}

// @Summary 切换当前题目
// @Tags 测验模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "答题ID"
// @Param body body NavigateReq true "目标题目下标（越界自动收敛）"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/position [put]
func (c *AttemptController) Navigate(ctx *gin.Context) {
	session, ok := c.ownedSession(ctx)
	if !ok {
		return
	}

	var req NavigateReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session.Navigate(*req.QuestionIndex)
	util.Success(ctx, session.State())
}

// @Summary 提交测验
// @Tags 测验模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "答题ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	session, ok := c.ownedSession(ctx)
	if !ok {
		return
	}

	if err := session.Submit(ctx.Request.Context()); err != nil {
		c.respondError(ctx, err)
		return
	}

	util.Success(ctx, session.State())
}

// @Summary 提交失败后重试（使用冻结的答案快照）
// @Tags 测验模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "答题ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/retry [post]
func (c *AttemptController) Retry(ctx *gin.Context) {
	session, ok := c.ownedSession(ctx)
	if !ok {
		return
	}

	if err := session.Retry(ctx.Request.Context()); err != nil {
		c.respondError(ctx, err)
		return
	}

	util.Success(ctx, session.State())
}

// @Summary 获取评分与逐题回顾
// @Tags 测验模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "答题ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/review [get]
func (c *AttemptController) GetReview(ctx *gin.Context) {
	session, ok := c.ownedSession(ctx)
	if !ok {
		return
	}

	review, err := session.Review()
	if err != nil {
		c.respondError(ctx, err)
		return
	}

	util.Success(ctx, review)
}

// @Summary 放弃并销毁答题会话
// @Tags 测验模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "答题ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [delete]
func (c *AttemptController) CloseAttempt(ctx *gin.Context) {
	session, ok := c.ownedSession(ctx)
	if !ok {
		return
	}

	if err := c.Manager.Remove(session.ID); err != nil {
		c.respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"closed": session.ID})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// @Summary 订阅答题状态推送（倒计时、阶段变化）
// @Tags 测验模块
// @Security BearerAuth
// @Param id path string true "答题ID"
// @Router /api/attempts/{id}/watch [get]
func (c *AttemptController) Watch(ctx *gin.Context) {
	session, ok := c.ownedSession(ctx)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Log.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel := session.Watch()
	defer cancel()

	// 读泵只用于感知客户端断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case view, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(view); err != nil {
				return
			}
		}
	}
}

func (c *AttemptController) ownedSession(ctx *gin.Context) (*attempt.Session, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}

	session, err := c.Manager.Get(ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return nil, false
	}
	if session.UserID != user.UserID {
		util.Forbidden(ctx)
		return nil, false
	}
	return session, true
}

// respondError maps domain errors onto HTTP statuses. Phase and range
// violations are caller bugs against the attempt state machine, so they are
// logged rather than swallowed.
func (c *AttemptController) respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrQuizNotFound) || errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrEmptyQuiz) || errors.Is(err, util.ErrInvalidTimeLimit) ||
		errors.Is(err, util.ErrAnswerCountMismatch):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrQuestionOutOfRange) || errors.Is(err, util.ErrOptionOutOfRange):
		logger.Log.Error("attempt contract violation", zap.Error(err))
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrInvalidPhase) || errors.Is(err, util.ErrAttemptNotGraded):
		logger.Log.Error("attempt contract violation", zap.Error(err))
		util.Error(ctx, http.StatusConflict, err.Error())
	default:
		// 抓取或提交过程中的传输失败
		logger.Log.Error("grading boundary error", zap.Error(err))
		util.Error(ctx, http.StatusBadGateway, "grading service unavailable")
	}
}

func parseUintParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := util.ParseUint(ctx.Param(name))
	if err != nil {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}
