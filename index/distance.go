package index

import "math"

// CosineDistance 计算余弦距离 1 - cos(a, b)。
// 长度不同或任一向量模为 0 时返回最大距离 1.0。
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1.0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 1.0
	}

	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// 浮点误差可能使相似度略超出 [-1, 1]
	if similarity > 1 {
		similarity = 1
	} else if similarity < -1 {
		similarity = -1
	}
	return 1.0 - similarity
}

// CosineSimilarity 余弦相似度
func CosineSimilarity(a, b []float32) float64 {
	return 1.0 - CosineDistance(a, b)
}
