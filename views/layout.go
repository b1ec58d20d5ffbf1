// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package views

import "time"

type navItem struct {
	Path  string
	Label string
}

var navigation = []navItem{
	{"/", "Головна"},
	{"/exhibitions", "Виставки"},
	{"/posts", "Публікації"},
	{"/products", "Твори"},
	{"/artists", "Митці"},
	{"/museums", "Музеї"},
	{"/art-terms", "Терміни"},
}

// firstYear is the first year shown in the footer copyright.
const firstYear = 2024

// currentYear is a variable so tests can pin the footer.
var currentYear = func() int { return time.Now().Year() }
