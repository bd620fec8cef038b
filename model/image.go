package model

// Image is an embedded raster region extracted from a page, saved as an
// artifact file and carried in the document by reference.
type Image struct {
	ID       string    `json:"image_id"`
	BBox     []float64 `json:"bbox"`
	FilePath string    `json:"file_path"`
	Caption  *string   `json:"caption"`
	Data     []byte    `json:"image_data,omitempty"`
}

// Bounds returns the image's bounding box.
func (im *Image) Bounds() BBox {
	return BBoxFromCoords(im.BBox)
}
