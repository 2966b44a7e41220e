package core

// maxGuardSearchBlocks 守卫搜索最多访问的不同基本块数
// 这是近似支配检查的代价上限：超出预算即放弃，按未守卫处理
const maxGuardSearchBlocks = 10

// FindGuard 从危险点所在基本块出发，沿前驱方向搜索守卫条件
//
// 每个块只访问一次，总量受 maxGuardSearchBlocks 约束，循环回边因此天然
// 终止。按前驱记录顺序返回第一个匹配——这是"前驱链上存在守卫"的近似
// 支配判定，汇聚点之后只有部分路径被守卫时会误判为已守卫（已知误报源，
// 换取无需支配树的线性开销）
func FindGuard(hazard HazardSite, blockID int, blocks []CondBlock) *Guard {
	if blockID < 0 || blockID >= len(blocks) {
		return nil
	}

	index := make(map[int]*CondBlock, len(blocks))
	for i := range blocks {
		index[blocks[i].ID] = &blocks[i]
	}

	visited := make(map[int]bool, maxGuardSearchBlocks)
	return searchPreds(hazard, blockID, index, visited)
}

func searchPreds(hazard HazardSite, blockID int, index map[int]*CondBlock, visited map[int]bool) *Guard {
	if visited[blockID] || len(visited) >= maxGuardSearchBlocks {
		return nil
	}
	visited[blockID] = true

	block, ok := index[blockID]
	if !ok {
		return nil
	}

	for _, predID := range block.Preds {
		pred, ok := index[predID]
		if !ok {
			continue
		}
		if pred.Terminator != nil {
			if guarded, text := ClassifyGuard(pred.Terminator, hazard); guarded {
				return &Guard{
					HazardID:  hazard.ID,
					Condition: text,
					BlockID:   pred.ID,
				}
			}
		}
		if g := searchPreds(hazard, predID, index, visited); g != nil {
			return g
		}
	}

	return nil
}
