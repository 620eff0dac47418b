package categories

type Category struct {
	CategoryID   uint   `json:"id"`
	CategoryName string `json:"name"`
	CategoryCode string `json:"code"`
	IsDisabled   bool   `json:"is_disabled"`
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

type UpdateCategoryRequest struct {
	Name       string `json:"name" binding:"required"`
	Code       string `json:"code" binding:"required"`
	IsDisabled bool   `json:"is_disabled"`
}
