package parser

// SheetRecognizer Sheet 结构识别器
type SheetRecognizer struct {
	markers         []string
	ingredientLabel string
}

// NewSheetRecognizer 创建识别器
func NewSheetRecognizer(markers []string, ingredientLabel string) *SheetRecognizer {
	return &SheetRecognizer{
		markers:         markers,
		ingredientLabel: ingredientLabel,
	}
}

// IsHeader 是否为配料块表头行：A 为 № / #，B 为 Ингридиент
func (r *SheetRecognizer) IsHeader(a, b string) bool {
	return NormalizeLabel(b) == r.ingredientLabel && MatchesAny(a, r.markers)
}

// Recognize 识别 Sheet 结构
func (r *SheetRecognizer) Recognize(s Snapshot) SheetRecognitionResult {
	result := SheetRecognitionResult{
		SheetName:  s.Name,
		Kind:       SheetKindUnknown,
		HeaderRows: []int{},
	}
	if s.MaxRow() == 0 {
		return result
	}

	nonEmpty := 0
	for row := 1; row <= s.MaxRow(); row++ {
		a, b := s.Cell(row, 1), s.Cell(row, 2)
		if IsBlank(a) && IsBlank(b) {
			continue
		}
		nonEmpty++
		if r.IsHeader(a, b) {
			result.HeaderRows = append(result.HeaderRows, row)
			continue
		}
		if _, ok := ParseWholeNumber(a); ok {
			result.NumberedRow++
		}
	}

	if nonEmpty == 0 {
		return result
	}

	if len(result.HeaderRows) > 0 {
		result.Kind = SheetKindBlocks
		// 表头 + 编号行占比越高越可信
		result.Confidence = float64(len(result.HeaderRows)+result.NumberedRow) / float64(nonEmpty)
		if result.Confidence < 0.5 {
			result.Confidence = 0.5
		}
		return result
	}

	result.Kind = SheetKindFlat
	result.Confidence = 0.6
	return result
}
