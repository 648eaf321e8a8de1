// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package detector

import (
	"github.com/sjwhitworth/golearn/base"
)

// instancesFromRows packs (packet_rate, unique_ports) feature pairs into a
// golearn data grid. golearn requires exactly one class attribute on the
// grid even for unsupervised fitting, so every row carries a constant
// label; it never participates in the splits.
func instancesFromRows(rows [][2]float64) (*base.DenseInstances, error) {
	data := base.NewDenseInstances()
	specs := []base.AttributeSpec{
		data.AddAttribute(base.NewFloatAttribute("packet_rate")),
		data.AddAttribute(base.NewFloatAttribute("unique_ports")),
	}

	clsAttr := base.NewCategoricalAttribute()
	clsAttr.SetName("label")
	clsSpec := data.AddAttribute(clsAttr)
	if err := data.AddClassAttribute(clsAttr); err != nil {
		return nil, err
	}

	if err := data.Extend(len(rows)); err != nil {
		return nil, err
	}
	for i, r := range rows {
		data.Set(specs[0], i, base.PackFloatToBytes(r[0]))
		data.Set(specs[1], i, base.PackFloatToBytes(r[1]))
		data.Set(clsSpec, i, clsAttr.GetSysValFromString("normal"))
	}
	return data, nil
}
