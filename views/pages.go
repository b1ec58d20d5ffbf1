// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package views

import (
	"net/url"

	"github.com/a-h/templ"

	"github.com/KubriakZahoor107/Art-Culture-Fork/server/utils"
)

// page builds the content of one route from the request URL.
type page func(u *url.URL) templ.Component

// authForm describes the login and signup forms. They post to the API.
type authForm struct {
	Title    string
	Action   string
	Submit   string
	AltPath  string
	AltLabel string
}

var homeSections = []navItem{
	{"/exhibitions", "Виставки"},
	{"/artists", "Митці"},
	{"/museums", "Музеї"},
}

var pages = map[string]page{
	"home":        func(*url.URL) templ.Component { return homeView(homeSections) },
	"exhibitions": collectionPage("Виставки", "Актуальні та майбутні виставки в музеях і галереях України.", "exhibitions"),
	"posts":       collectionPage("Публікації", "Статті, новини та історії зі світу мистецтва.", "posts"),
	"products":    collectionPage("Твори", "Твори сучасних українських митців.", "products"),
	"artists":     collectionPage("Митці", "Профілі митців, їхні роботи та виставки.", "artists"),
	"museums":     collectionPage("Музеї", "Музеї та галереї на мапі України.", "museums"),
	"art-terms":   collectionPage("Мистецькі терміни", "Словник мистецьких термінів з прикладами творів.", "art-terms"),
	"search": func(u *url.URL) templ.Component {
		return searchView(utils.GetQueryParam(u, "q"))
	},
	"login": authPage(authForm{
		Title:    "Вхід",
		Action:   "/api/auth/login",
		Submit:   "Увійти",
		AltPath:  "/signup",
		AltLabel: "Створити обліковий запис",
	}),
	"signup": authPage(authForm{
		Title:    "Реєстрація",
		Action:   "/api/auth/register",
		Submit:   "Зареєструватися",
		AltPath:  "/login",
		AltLabel: "Вже маєте обліковий запис? Увійти",
	}),
	"about": func(*url.URL) templ.Component { return aboutView() },
}

func collectionPage(title, description, collection string) page {
	return func(*url.URL) templ.Component {
		return collectionView(title, description, collection)
	}
}

func authPage(form authForm) page {
	return func(*url.URL) templ.Component { return authView(form) }
}

func notFoundPage(u *url.URL) templ.Component {
	return notFoundView(u.Path)
}
