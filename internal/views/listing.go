package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/and161185/fleamarket/internal/cache"
	"github.com/and161185/fleamarket/internal/errs"
	"github.com/and161185/fleamarket/internal/model"
	"github.com/and161185/fleamarket/internal/screen"
)

// CreateListing publishes a new listing for the current user.
type CreateListing struct {
	env   *Env
	ctx   context.Context
	scope *cache.Scope

	Busy bool
	Err  string
}

func NewCreateListing(env *Env) *CreateListing { return &CreateListing{env: env} }

func (v *CreateListing) Screen() screen.Screen { return screen.CreateListing{} }

func (v *CreateListing) Mount(ctx context.Context) {
	v.ctx, v.scope = ctx, cache.NewScope()
}

func (v *CreateListing) Unmount() { v.scope.Close() }

// ListingForm is the user's input.
type ListingForm struct {
	Title       string
	Price       int
	Description string
	Status      model.Status // available or considering
	ImagePath   string       // optional local file
}

// Validate checks the form. A considering listing has no price yet.
func (f ListingForm) Validate() error {
	if strings.TrimSpace(f.Title) == "" || strings.TrimSpace(f.Description) == "" {
		return fmt.Errorf("%w: title and description are required", errs.ErrValidation)
	}
	switch f.Status {
	case "", model.StatusAvailable:
		if f.Price <= 0 {
			return fmt.Errorf("%w: price must be positive", errs.ErrValidation)
		}
	case model.StatusConsidering:
	default:
		return fmt.Errorf("%w: status must be available or considering", errs.ErrValidation)
	}
	return nil
}

// Submit uploads the image if one is given, creates the listing and goes Home.
func (v *CreateListing) Submit(f ListingForm) {
	if v.Busy {
		return
	}
	if err := f.Validate(); err != nil {
		v.Err = errs.Message(err)
		return
	}
	if f.ImagePath != "" && v.env.Uploader == nil {
		v.Err = "image upload is not available"
		return
	}
	np := model.NewProduct{
		Title:       strings.TrimSpace(f.Title),
		Price:       f.Price,
		Description: strings.TrimSpace(f.Description),
		SellerID:    v.env.userID(),
		Status:      f.Status,
	}
	if np.Status == model.StatusConsidering {
		np.Price = 0
	}

	v.Busy, v.Err = true, ""
	fetch(v.env, v.ctx, v.scope.Closed,
		func(ctx context.Context) (model.Product, error) {
			if f.ImagePath != "" {
				url, err := v.env.Uploader.Upload(ctx, f.ImagePath)
				if err != nil {
					return model.Product{}, fmt.Errorf("upload: %w", err)
				}
				np.ImageURL = url
			}
			return v.env.Gateway.CreateProduct(ctx, np)
		},
		func(_ model.Product, err error) {
			v.Busy = false
			if err != nil {
				v.Err = v.env.fail(err)
				return
			}
			v.env.navigate(screen.Home{})
		},
	)
}

func (v *CreateListing) Cancel() { v.env.navigate(screen.Home{}) }
