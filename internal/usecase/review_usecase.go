package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

const maxReviewImages = 5

// ReviewUsecase はレビューの投稿・編集・削除と商品評価の再計算。
// 評価平均は書き込みのたびに集計クエリで作り直す。
type ReviewUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewReviewUsecase(tx repo.TransactionManager, clock Clock) *ReviewUsecase {
	return &ReviewUsecase{tx: tx, clock: clock}
}

// ProductIDsが空なら注文内の全商品
type SubmitReviewInput struct {
	OrderID    int64
	ProductIDs []int64
	Rating     int
	Comment    string
	Images     []string
}

// nilの項目は変更しない
type UpdateReviewInput struct {
	Rating  *int
	Comment *string
	Images  []string
}

type ReviewListOutput struct {
	Items []model.Review `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

func (u *ReviewUsecase) Submit(ctx context.Context, userID int64, in SubmitReviewInput) ([]model.Review, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "order id is required")
	}
	if !model.ValidRating(in.Rating) {
		return nil, NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}
	if len(in.Images) > maxReviewImages {
		return nil, NewHTTPError(http.StatusBadRequest, "too many images")
	}

	var created []model.Review
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOwnOrder(ctx, r, userID, in.OrderID)
		if err != nil {
			return err
		}
		if o.Status != model.OrderStatusSuccess {
			return NewHTTPError(http.StatusConflict, "order not completed")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return internalError(err)
		}
		targets, herr := reviewTargets(items, in.ProductIDs)
		if herr != nil {
			return herr
		}

		for _, pid := range targets {
			exists, err := r.Reviews().ExistsForOrderProduct(ctx, o.ID, pid)
			if err != nil {
				return internalError(err)
			}
			if exists {
				return NewHTTPError(http.StatusConflict, "order already reviewed")
			}
		}

		now := u.clock.Now()
		created = make([]model.Review, 0, len(targets))
		for _, pid := range targets {
			rv := model.Review{
				UserID:    userID,
				OrderID:   o.ID,
				ProductID: pid,
				Rating:    in.Rating,
				Comment:   strings.TrimSpace(in.Comment),
				Images:    nonNilStrings(in.Images),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := r.Reviews().Create(ctx, &rv); err != nil {
				if errors.Is(err, repo.ErrDuplicate) {
					return NewHTTPError(http.StatusConflict, "order already reviewed")
				}
				return internalError(err)
			}
			created = append(created, rv)
		}

		if err := r.Orders().SetReviewed(ctx, o.ID, true); err != nil {
			return internalError(err)
		}
		for _, pid := range targets {
			if err := recomputeRating(ctx, r, pid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (u *ReviewUsecase) Update(ctx context.Context, userID int64, reviewID int64, in UpdateReviewInput) (model.Review, error) {
	if userID <= 0 {
		return model.Review{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if reviewID <= 0 {
		return model.Review{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Rating != nil && !model.ValidRating(*in.Rating) {
		return model.Review{}, NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}
	if len(in.Images) > maxReviewImages {
		return model.Review{}, NewHTTPError(http.StatusBadRequest, "too many images")
	}

	var out model.Review
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rv, err := findReview(ctx, r, reviewID)
		if err != nil {
			return err
		}
		if rv.UserID != userID {
			return NewHTTPError(http.StatusForbidden, "not your review")
		}

		if in.Rating != nil {
			rv.Rating = *in.Rating
		}
		if in.Comment != nil {
			rv.Comment = strings.TrimSpace(*in.Comment)
		}
		if in.Images != nil {
			rv.Images = in.Images
		}
		rv.UpdatedAt = u.clock.Now()

		if err := r.Reviews().Update(ctx, rv); err != nil {
			return internalError(err)
		}
		if err := recomputeRating(ctx, r, rv.ProductID); err != nil {
			return err
		}
		out = rv
		return nil
	})
	if err != nil {
		return model.Review{}, err
	}
	return out, nil
}

// 本人か管理者だけ削除できる。管理者の削除は監査ログに残す
func (u *ReviewUsecase) Delete(ctx context.Context, actorID int64, isAdmin bool, reviewID int64) error {
	if actorID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if reviewID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rv, err := findReview(ctx, r, reviewID)
		if err != nil {
			return err
		}
		if !isAdmin && rv.UserID != actorID {
			return NewHTTPError(http.StatusForbidden, "not your review")
		}

		if err := r.Reviews().Delete(ctx, reviewID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "review not found")
			}
			return internalError(err)
		}
		if err := recomputeRating(ctx, r, rv.ProductID); err != nil {
			return err
		}

		// 注文のレビューが無くなったら未レビューに戻す
		left, err := r.Reviews().CountByOrderID(ctx, rv.OrderID)
		if err != nil {
			return internalError(err)
		}
		if left == 0 {
			if err := r.Orders().SetReviewed(ctx, rv.OrderID, false); err != nil && !errors.Is(err, repo.ErrNotFound) {
				return internalError(err)
			}
		}

		if isAdmin {
			return writeAudit(ctx, r, actorID, model.AuditActionDeleteReview, model.AuditResourceReview, reviewID, rv, nil, u.clock)
		}
		return nil
	})
}

func (u *ReviewUsecase) Get(ctx context.Context, reviewID int64) (model.Review, error) {
	if reviewID <= 0 {
		return model.Review{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var out model.Review
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rv, err := findReview(ctx, r, reviewID)
		out = rv
		return err
	})
	if err != nil {
		return model.Review{}, err
	}
	return out, nil
}

func (u *ReviewUsecase) List(ctx context.Context, f repo.ReviewFilter) (ReviewListOutput, error) {
	if f.Rating != nil && !model.ValidRating(*f.Rating) {
		return ReviewListOutput{}, NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)

	var out ReviewListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Reviews().List(ctx, f)
		if err != nil {
			return internalError(err)
		}
		out = ReviewListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}
		return nil
	})
	if err != nil {
		return ReviewListOutput{}, err
	}
	return out, nil
}

func (u *ReviewUsecase) ListMine(ctx context.Context, userID int64, page, limit int) (ReviewListOutput, error) {
	if userID <= 0 {
		return ReviewListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.List(ctx, repo.ReviewFilter{UserID: &userID, Page: page, Limit: limit})
}

func findReview(ctx context.Context, r repo.TxRepos, reviewID int64) (model.Review, error) {
	rv, err := r.Reviews().FindByID(ctx, reviewID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Review{}, NewHTTPError(http.StatusNotFound, "review not found")
	}
	if err != nil {
		return model.Review{}, internalError(err)
	}
	return rv, nil
}

// 指定が無ければ注文内の全商品（重複なし）
func reviewTargets(items []model.OrderItem, requested []int64) ([]int64, error) {
	inOrder := make(map[int64]bool, len(items))
	all := make([]int64, 0, len(items))
	for _, it := range items {
		if !inOrder[it.ProductID] {
			inOrder[it.ProductID] = true
			all = append(all, it.ProductID)
		}
	}

	if len(requested) == 0 {
		return all, nil
	}

	seen := make(map[int64]bool, len(requested))
	out := make([]int64, 0, len(requested))
	for _, pid := range requested {
		if !inOrder[pid] {
			return nil, NewHTTPError(http.StatusBadRequest, "product not in order")
		}
		if !seen[pid] {
			seen[pid] = true
			out = append(out, pid)
		}
	}
	return out, nil
}

func recomputeRating(ctx context.Context, r repo.TxRepos, productID int64) error {
	avg, count, err := r.Reviews().RatingSummary(ctx, productID)
	if err != nil {
		return internalError(err)
	}
	if err := r.Products().UpdateRating(ctx, productID, avg, count); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return internalError(err)
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
