// Package page はデモテスターの自作ページのドメインロジックを提供する。
package page

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/demostand/internal/model"
	"github.com/hitoshi/demostand/internal/permission"
	"github.com/hitoshi/demostand/internal/repository"
	"github.com/hitoshi/demostand/internal/security"
)

// maxPagesPerTenant はテナントあたりのページ上限。
const maxPagesPerTenant = 50

// maxTitleLength はタイトルの最大文字数。
const maxTitleLength = 200

// Service はデモページのCRUDを提供するサービス層。
// すべての操作はアクターのテナント内に閉じ、本文は保存前にサニタイズされる。
type Service struct {
	pageRepo  repository.PageRepository
	sanitizer security.ContentSanitizerService
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(pageRepo repository.PageRepository, sanitizer security.ContentSanitizerService, logger *slog.Logger) *Service {
	return &Service{
		pageRepo:  pageRepo,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// Input はページの作成・更新の入力を表す。
type Input struct {
	Title       string
	ContentHTML string
	Status      model.PageStatus
}

// Create はアクターのテナントにページを作成する。
// 公開状態での新規作成にはpublish権限が必要。
func (s *Service) Create(ctx context.Context, actor *model.Principal, input Input) (*model.Page, error) {
	if err := s.validate(actor, input); err != nil {
		return nil, err
	}

	count, err := s.pageRepo.CountByTenant(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("ページ数の確認に失敗しました: %w", err)
	}
	if count >= maxPagesPerTenant {
		return nil, model.NewPageLimitReachedError(maxPagesPerTenant)
	}

	now := time.Now()
	page := &model.Page{
		ID:          uuid.New().String(),
		TenantID:    actor.ID,
		Title:       s.sanitizer.SanitizeText(strings.TrimSpace(input.Title)),
		ContentHTML: s.sanitizer.SanitizeHTML(input.ContentHTML),
		Status:      input.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.pageRepo.Create(ctx, page); err != nil {
		return nil, fmt.Errorf("ページの作成に失敗しました: %w", err)
	}

	s.logger.Info("demo page created",
		slog.String("tenant_id", actor.ID),
		slog.String("page_id", page.ID),
		slog.String("status", string(page.Status)),
	)
	return page, nil
}

// Update は既存ページを上書きする。対象はアクターのテナント内に限られる。
func (s *Service) Update(ctx context.Context, actor *model.Principal, pageID string, input Input) (*model.Page, error) {
	if err := s.validate(actor, input); err != nil {
		return nil, err
	}

	page, err := s.pageRepo.FindByID(ctx, actor.ID, pageID)
	if err != nil {
		return nil, fmt.Errorf("ページの検索に失敗しました: %w", err)
	}
	if page == nil {
		return nil, model.NewPageNotFoundError(pageID)
	}

	page.Title = s.sanitizer.SanitizeText(strings.TrimSpace(input.Title))
	page.ContentHTML = s.sanitizer.SanitizeHTML(input.ContentHTML)
	page.Status = input.Status
	page.UpdatedAt = time.Now()

	if err := s.pageRepo.Update(ctx, page); err != nil {
		return nil, fmt.Errorf("ページの更新に失敗しました: %w", err)
	}

	return page, nil
}

// Get はアクターのテナント内のページを1件取得する。
func (s *Service) Get(ctx context.Context, actor *model.Principal, pageID string) (*model.Page, error) {
	page, err := s.pageRepo.FindByID(ctx, actor.ID, pageID)
	if err != nil {
		return nil, fmt.Errorf("ページの検索に失敗しました: %w", err)
	}
	if page == nil {
		return nil, model.NewPageNotFoundError(pageID)
	}
	return page, nil
}

// List はアクターのテナント内のページ一覧を返す。
func (s *Service) List(ctx context.Context, actor *model.Principal) ([]*model.Page, error) {
	pages, err := s.pageRepo.ListByTenant(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("ページ一覧の取得に失敗しました: %w", err)
	}
	return pages, nil
}

// Delete はアクターのテナント内のページを削除する。
func (s *Service) Delete(ctx context.Context, actor *model.Principal, pageID string) error {
	page, err := s.pageRepo.FindByID(ctx, actor.ID, pageID)
	if err != nil {
		return fmt.Errorf("ページの検索に失敗しました: %w", err)
	}
	if page == nil {
		return model.NewPageNotFoundError(pageID)
	}

	if err := s.pageRepo.DeleteByID(ctx, actor.ID, pageID); err != nil {
		return fmt.Errorf("ページの削除に失敗しました: %w", err)
	}

	s.logger.Info("demo page deleted",
		slog.String("tenant_id", actor.ID),
		slog.String("page_id", pageID),
	)
	return nil
}

// validate は入力と権限を検証する。
func (s *Service) validate(actor *model.Principal, input Input) error {
	perms := permission.ForRole(actor.Role)
	if !perms.Has(permission.ManageOwnPages) {
		return model.NewPermissionDeniedError()
	}
	if !input.Status.IsValid() {
		return model.NewInvalidPageStatusError(string(input.Status))
	}
	if input.Status == model.PageStatusPublished && !perms.Has(permission.PublishOwnPages) {
		return model.NewPermissionDeniedError()
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return model.NewInvalidPageTitleError("タイトルは必須です")
	}
	if len([]rune(title)) > maxTitleLength {
		return model.NewInvalidPageTitleError(fmt.Sprintf("タイトルは%d文字以内で入力してください", maxTitleLength))
	}
	return nil
}
