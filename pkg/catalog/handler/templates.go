package handler

import "html/template"

var pageTemplates = template.Must(template.New("page").Parse(`
{{define "header"}}<header><h1>{{.Title}}</h1></header>{{end}}
{{define "product_card"}}<article id="{{.Id}}"><h2>{{.Name}}</h2><p class="price">{{.Price}}</p></article>{{end}}
{{define "pagination"}}<nav class="pagination">{{.}} items</nav>{{end}}
{{define "footer"}}<footer>{{.}}</footer>{{end}}
{{define "profiler_toolbar"}}<div id="lantern-toolbar" data-store="{{.}}"></div>{{end}}
`))

type headerView struct {
	Title string
}

type productView struct {
	Id    string
	Name  string
	Price string
}
