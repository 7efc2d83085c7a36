package model

// LedgerField 产品台账中的数值字段
type LedgerField string

const (
	FieldPrice    LedgerField = "price"
	FieldCalories LedgerField = "calories"
	FieldProtein  LedgerField = "protein"
	FieldFat      LedgerField = "fat"
	FieldCarbs    LedgerField = "carbs"
)

// NutritionFields КБЖУ 四个字段（顺序固定：卡路里、蛋白质、脂肪、碳水）
var NutritionFields = []LedgerField{FieldCalories, FieldProtein, FieldFat, FieldCarbs}

// Nutrition 每 100 单位的 КБЖУ
type Nutrition struct {
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
	Fat      float64 `json:"fat" yaml:"fat"`
	Carbs    float64 `json:"carbs" yaml:"carbs"`
}

// Value 按字段取值
func (n Nutrition) Value(field LedgerField) (float64, bool) {
	switch field {
	case FieldCalories:
		return n.Calories, true
	case FieldProtein:
		return n.Protein, true
	case FieldFat:
		return n.Fat, true
	case FieldCarbs:
		return n.Carbs, true
	default:
		return 0, false
	}
}

// LedgerRecord 产品台账中的一行
type LedgerRecord struct {
	ID        int        `json:"id"`
	Row       int        `json:"row"` // 台账 sheet 中的物理行号（1 起）；新追加前为 0
	Name      string     `json:"name"`
	Price     *float64   `json:"price,omitempty"`
	Supplier  string     `json:"supplier,omitempty"`
	Nutrition *Nutrition `json:"nutrition,omitempty"`
}

// Value 按字段取值；字段为空时 ok=false
func (r LedgerRecord) Value(field LedgerField) (float64, bool) {
	if field == FieldPrice {
		if r.Price == nil {
			return 0, false
		}
		return *r.Price, true
	}
	if r.Nutrition == nil {
		return 0, false
	}
	return r.Nutrition.Value(field)
}

// CanonicalLedger 产品台账（按行序）
//
// 只在一次运行内有效；除 LedgerMerger 追加外不做修改。
type CanonicalLedger struct {
	Sheet        string          `json:"sheet"`
	FirstDataRow int             `json:"firstDataRow"`
	Records      []*LedgerRecord `json:"records"`
}

// Names 返回台账中已有名称（原样、去首尾空白）的集合
func (l *CanonicalLedger) Names() map[string]struct{} {
	out := make(map[string]struct{}, len(l.Records))
	for _, r := range l.Records {
		out[r.Name] = struct{}{}
	}
	return out
}

// MaxID 返回最大 id（空台账为 0）
func (l *CanonicalLedger) MaxID() int {
	maxID := 0
	for _, r := range l.Records {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return maxID
}

// LastRow 返回最后一条记录所在行；空台账返回 FirstDataRow-1
func (l *CanonicalLedger) LastRow() int {
	last := l.FirstDataRow - 1
	for _, r := range l.Records {
		if r.Row > last {
			last = r.Row
		}
	}
	return last
}

// OverrideEntry 手工映射条目（价格与 КБЖУ 均可选）
type OverrideEntry struct {
	Price    *float64 `json:"price,omitempty" yaml:"price,omitempty"`
	Calories *float64 `json:"calories,omitempty" yaml:"calories,omitempty"`
	Protein  *float64 `json:"protein,omitempty" yaml:"protein,omitempty"`
	Fat      *float64 `json:"fat,omitempty" yaml:"fat,omitempty"`
	Carbs    *float64 `json:"carbs,omitempty" yaml:"carbs,omitempty"`
}

// Record 转换为台账记录（id=0，表示不在台账中）
func (e OverrideEntry) Record(name string) LedgerRecord {
	rec := LedgerRecord{Name: name, Price: e.Price}
	if e.Calories != nil || e.Protein != nil || e.Fat != nil || e.Carbs != nil {
		rec.Nutrition = &Nutrition{
			Calories: deref(e.Calories),
			Protein:  deref(e.Protein),
			Fat:      deref(e.Fat),
			Carbs:    deref(e.Carbs),
		}
	}
	return rec
}

// Value 按字段取手工值；未填写时 ok=false
func (e OverrideEntry) Value(field LedgerField) (float64, bool) {
	var v *float64
	switch field {
	case FieldPrice:
		v = e.Price
	case FieldCalories:
		v = e.Calories
	case FieldProtein:
		v = e.Protein
	case FieldFat:
		v = e.Fat
	case FieldCarbs:
		v = e.Carbs
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// OverrideCatalog 规范化名称 -> 手工字段，只读
type OverrideCatalog map[string]OverrideEntry

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
