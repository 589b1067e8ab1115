package handler

import (
	"bytes"
	"context"
	"fmt"
	"github.com/Avi18971911/Lantern/pkg/catalog/model"
	profileModel "github.com/Avi18971911/Lantern/pkg/profile/model"
	"github.com/Avi18971911/Lantern/pkg/profile/service"
	"github.com/Avi18971911/Lantern/pkg/server/middleware"
)

const (
	headerUnit     = "header"
	bodyUnit       = "body"
	footerUnit     = "footer"
	paginationUnit = "pagination"
	toolbarUnit    = "profiler_toolbar"
)

// pageRenderer writes a page unit by unit, timing each unit through the profiler.
type pageRenderer struct {
	ctx     context.Context
	lc      service.LifecycleController
	storeID string
	buf     bytes.Buffer
}

func newPageRenderer(ctx context.Context, lc service.LifecycleController, storeID string) *pageRenderer {
	return &pageRenderer{ctx: ctx, lc: lc, storeID: storeID}
}

func (pr *pageRenderer) generate(handle string, units ...profileModel.StructuralUnit) {
	middleware.StructuralGenerate(pr.ctx, pr.lc, units, profileModel.StructuralContext{
		Handles: []string{"default", handle},
		Design:  "storefront",
		Theme:   "light",
	})
}

func (pr *pageRenderer) render(unit profileModel.RenderUnit, name string, data interface{}) error {
	return middleware.RenderUnit(pr.ctx, pr.lc, unit, func() error {
		return pageTemplates.ExecuteTemplate(&pr.buf, name, data)
	})
}

func (pr *pageRenderer) renderProducts(title string, products []model.Product, paginated bool) error {
	stop := middleware.Timer(pr.ctx, pr.lc, "page_render")
	defer stop()
	if err := pr.render(applicationUnit(headerUnit), "header", headerView{Title: title}); err != nil {
		return fmt.Errorf("error rendering header: %w", err)
	}
	err := middleware.RenderUnit(pr.ctx, pr.lc, applicationUnit(bodyUnit), func() error {
		for _, product := range products {
			view := productView{Id: product.Id, Name: product.Name, Price: product.Price.StringFixed(2)}
			if err := pr.render(applicationUnit("product_card:"+product.Id), "product_card", view); err != nil {
				return err
			}
		}
		if paginated {
			unit := profileModel.RenderUnit{Name: paginationUnit, Kind: profileModel.UnitKindFramework}
			return pr.render(unit, "pagination", len(products))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error rendering body: %w", err)
	}
	if err := pr.render(applicationUnit(footerUnit), "footer", pr.storeID); err != nil {
		return fmt.Errorf("error rendering footer: %w", err)
	}
	toolbar := profileModel.RenderUnit{Name: toolbarUnit, Kind: profileModel.UnitKindSelf}
	if err := pr.render(toolbar, "profiler_toolbar", pr.storeID); err != nil {
		return fmt.Errorf("error rendering toolbar: %w", err)
	}
	return nil
}

func (pr *pageRenderer) Bytes() []byte {
	return pr.buf.Bytes()
}

func applicationUnit(name string) profileModel.RenderUnit {
	return profileModel.RenderUnit{Name: name, Kind: profileModel.UnitKindApplication}
}

func pageStructure(paginated bool) []profileModel.StructuralUnit {
	units := []profileModel.StructuralUnit{
		{Name: headerUnit, Kind: profileModel.UnitKindApplication, Type: "block", Template: "header"},
		{Name: bodyUnit, Kind: profileModel.UnitKindApplication, Type: "container"},
		{Name: footerUnit, Kind: profileModel.UnitKindApplication, Type: "block", Template: "footer"},
		{Name: toolbarUnit, Kind: profileModel.UnitKindSelf, Type: "block", Parent: footerUnit},
	}
	if paginated {
		units = append(units, profileModel.StructuralUnit{
			Name:     paginationUnit,
			Kind:     profileModel.UnitKindFramework,
			Type:     "block",
			Parent:   bodyUnit,
			Template: "pagination",
		})
	}
	return units
}
