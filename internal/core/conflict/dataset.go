package conflict

import "skincare-scanner/internal/pkg/common"

// localDataset 內建的已知衝突成分表：遠端分析服務不可用時的後援
// 鍵一律為小寫，比對時做不分大小寫的精確匹配
var localDataset = map[string]common.Conflict{
	"retinol": {
		Name:        "Retinol",
		Severity:    common.SeverityHigh,
		Description: "高濃度視黃醇可能引起刺激、脫皮與光敏感",
	},
	"tretinoin": {
		Name:        "Tretinoin",
		Severity:    common.SeverityHigh,
		Description: "處方級維 A 酸，易造成乾燥刺激，不宜與酸類併用",
	},
	"benzoyl peroxide": {
		Name:        "Benzoyl Peroxide",
		Severity:    common.SeverityHigh,
		Description: "過氧化苯甲醯與視黃醇併用會互相降解並加重刺激",
	},
	"hydroquinone": {
		Name:        "Hydroquinone",
		Severity:    common.SeverityHigh,
		Description: "對苯二酚屬管制美白成分，長期使用有安全疑慮",
	},
	"formaldehyde": {
		Name:        "Formaldehyde",
		Severity:    common.SeverityHigh,
		Description: "甲醛為已知致敏原與刺激物",
	},
	"methylisothiazolinone": {
		Name:        "Methylisothiazolinone",
		Severity:    common.SeverityHigh,
		Description: "MIT 防腐劑，接觸性皮膚炎的常見成因",
	},
	"salicylic acid": {
		Name:        "Salicylic Acid",
		Severity:    common.SeverityMedium,
		Description: "水楊酸與其他酸類或視黃醇疊擦會過度去角質",
	},
	"glycolic acid": {
		Name:        "Glycolic Acid",
		Severity:    common.SeverityMedium,
		Description: "甘醇酸濃度過高或併用酸類時易刺激泛紅",
	},
	"lactic acid": {
		Name:        "Lactic Acid",
		Severity:    common.SeverityMedium,
		Description: "乳酸屬 AHA，敏感肌併用酸類時需留意",
	},
	"ascorbic acid": {
		Name:        "Ascorbic Acid",
		Severity:    common.SeverityMedium,
		Description: "左旋維他命 C 在低 pH 下與酸類併用可能刺激",
	},
	"fragrance": {
		Name:        "Fragrance",
		Severity:    common.SeverityMedium,
		Description: "香料為常見致敏原",
	},
	"parfum": {
		Name:        "Parfum",
		Severity:    common.SeverityMedium,
		Description: "香料為常見致敏原",
	},
	"alcohol denat": {
		Name:        "Alcohol Denat",
		Severity:    common.SeverityMedium,
		Description: "變性酒精可能造成乾燥與屏障受損",
	},
	"sodium lauryl sulfate": {
		Name:        "Sodium Lauryl Sulfate",
		Severity:    common.SeverityMedium,
		Description: "SLS 清潔力強，敏感肌易受刺激",
	},
	"oxybenzone": {
		Name:        "Oxybenzone",
		Severity:    common.SeverityLow,
		Description: "二苯甲酮類防曬劑，少數人會過敏",
	},
	"phenoxyethanol": {
		Name:        "Phenoxyethanol",
		Severity:    common.SeverityLow,
		Description: "苯氧乙醇防腐劑，高濃度時可能刺激",
	},
}
