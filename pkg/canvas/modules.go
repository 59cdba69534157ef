package canvas

import (
	"context"
	"fmt"
	"net/http"
)

// ListModules lists the modules of a course with their items.
func (s *Service) ListModules(ctx context.Context, courseID int64) ([]Module, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	return list[Module](ctx, s, fmt.Sprintf("/courses/%d/modules", courseID), include("items"))
}

// GetModule fetches one module with its items.
func (s *Service) GetModule(ctx context.Context, courseID, moduleID int64) (*Module, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("module_id", moduleID); err != nil {
		return nil, err
	}
	return get[*Module](ctx, s, fmt.Sprintf("/courses/%d/modules/%d", courseID, moduleID), include("items"))
}

// ListModuleItems lists the items of a module with content details.
func (s *Service) ListModuleItems(ctx context.Context, courseID, moduleID int64) ([]ModuleItem, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("module_id", moduleID); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/courses/%d/modules/%d/items", courseID, moduleID)
	return list[ModuleItem](ctx, s, path, include("content_details"))
}

// GetModuleItem fetches one module item with content details.
func (s *Service) GetModuleItem(ctx context.Context, courseID, moduleID, itemID int64) (*ModuleItem, error) {
	if err := requireID("course_id", courseID); err != nil {
		return nil, err
	}
	if err := requireID("module_id", moduleID); err != nil {
		return nil, err
	}
	if err := requireID("item_id", itemID); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/courses/%d/modules/%d/items/%d", courseID, moduleID, itemID)
	return get[*ModuleItem](ctx, s, path, include("content_details"))
}

// MarkModuleItemComplete marks a "must mark done" module item as done.
func (s *Service) MarkModuleItemComplete(ctx context.Context, courseID, moduleID, itemID int64) error {
	if err := requireID("course_id", courseID); err != nil {
		return err
	}
	if err := requireID("module_id", moduleID); err != nil {
		return err
	}
	if err := requireID("item_id", itemID); err != nil {
		return err
	}
	path := fmt.Sprintf("/courses/%d/modules/%d/items/%d/done", courseID, moduleID, itemID)
	return s.exec(ctx, http.MethodPut, path, nil)
}
