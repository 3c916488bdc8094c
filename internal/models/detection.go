package models

type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Verification is the CLIP/OpenAI cross-check attached to a detection.
type Verification struct {
	Verified           bool    `json:"verified"`
	OriginalPrediction string  `json:"original_prediction"`
	ClipPrediction     string  `json:"clip_prediction,omitempty"`
	Agrees             bool    `json:"agrees"`
	FinalPrediction    string  `json:"final_prediction"`
	FinalGroziCode     string  `json:"final_grozi_code,omitempty"`
	Source             string  `json:"source"`
	Confidence         float64 `json:"confidence"`
}

// Corrected reports whether the cross-check replaced the model's class.
func (v *Verification) Corrected() bool {
	return v != nil && v.Verified && !v.Agrees && v.FinalGroziCode != ""
}

// Detection is one bounding-box classification from a scan request.
type Detection struct {
	BBox          BBox          `json:"bbox"`
	ClassName     string        `json:"class_name"`
	ProductName   string        `json:"product_name,omitempty"`
	DisplayName   string        `json:"display_name"`
	Confidence    float64       `json:"confidence"`
	Category      string        `json:"category"`
	SKUConfidence *float64      `json:"sku_confidence,omitempty"`
	Verification  *Verification `json:"verification,omitempty"`
}

// Key is the product the detection counts towards.
func (d Detection) Key() string {
	if d.Verification.Corrected() {
		return d.Verification.FinalGroziCode
	}
	if d.ProductName != "" {
		return d.ProductName
	}
	return d.ClassName
}

type ImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type ShelfScanResult struct {
	TotalProductsFound int            `json:"total_products_found"`
	ProductsIdentified int            `json:"products_identified"`
	ProductCounts      map[string]int `json:"product_counts"`
	Detections         []Detection    `json:"detections"`
	ImageSize          ImageSize      `json:"image_size"`
}

type PredictResult struct {
	Detections []Detection `json:"detections"`
}

type IdentifiedProduct struct {
	ProductName string  `json:"product_name"`
	DisplayName string  `json:"display_name"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Confidence  float64 `json:"confidence"`
}

type ProductMatch struct {
	Found   bool               `json:"found"`
	Message string             `json:"message,omitempty"`
	Product *IdentifiedProduct `json:"product"`
}

type CSVProductCount struct {
	ProductName string     `json:"product_name"`
	DisplayName string     `json:"display_name"`
	Count       int        `json:"count"`
	StockLevel  StockLevel `json:"stock_level"`
}

type LevelTotals struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Out    int `json:"out"`
}

type CSVDetectionSummary struct {
	FilesProcessed int               `json:"files_processed"`
	Products       []CSVProductCount `json:"products"`
	Totals         LevelTotals       `json:"totals"`
}

// StoredDetection is a persisted detection row from GET /detections.
type StoredDetection struct {
	ID         int64   `json:"id"`
	SnapshotID int64   `json:"snapshot_id"`
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
	BBoxX1     float64 `json:"bbox_x1"`
	BBoxY1     float64 `json:"bbox_y1"`
	BBoxX2     float64 `json:"bbox_x2"`
	BBoxY2     float64 `json:"bbox_y2"`
	ShelfID    string  `json:"shelf_id"`
	CreatedAt  string  `json:"created_at"`
}

type Snapshot struct {
	ID        int64  `json:"id"`
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp"`
	CameraID  string `json:"camera_id"`
	CreatedAt string `json:"created_at"`
}
