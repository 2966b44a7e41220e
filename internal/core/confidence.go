package core

// 置信度规范表
// 这是其他阶段依赖的契约：传播、报告、入库都按这些值校准，
// 调整任何一项都会改变下游的复核阈值行为
const (
	ConfidenceExplicit        = 1.0  // 显式注解
	ConfidenceGuarded         = 1.0  // 模式识别且守卫成立
	ConfidenceUnguardedValue  = 0.95 // 未守卫的指针解引用/除法
	ConfidenceUnguardedBound  = 0.90 // 未守卫的数组下标
	ConfidenceUnguardedCast   = 0.90 // 不安全转换（固定值，不做守卫搜索）
	PropagationDecay          = 0.95 // 每跳衰减因子，严格小于1
	DefaultReviewFloor        = 0.50 // 默认复核阈值
)

// HazardConfidence 返回未守卫危险点对应的置信度
func HazardConfidence(kind HazardKind) float64 {
	switch kind {
	case HazardArrayAccess:
		return ConfidenceUnguardedBound
	case HazardCast:
		return ConfidenceUnguardedCast
	default:
		return ConfidenceUnguardedValue
	}
}

// PropagatedConfidence 计算传播一跳后的置信度
// 单调递减，渐近趋零但永不为零、永不为负
func PropagatedConfidence(parent float64) float64 {
	if parent <= 0 {
		return 0
	}
	return parent * PropagationDecay
}

// BelowFloor 判断置信度是否低于复核阈值
// 低于阈值的条目标记 needs_review，绝不丢弃
func BelowFloor(confidence, floor float64) bool {
	return confidence < floor
}
