package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/lychee-technology/formadmin"
	"github.com/lychee-technology/formadmin/internal"
)

// htmlWriter keeps the first write error so components can be written top to bottom.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, s := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) attr(name, value string) {
	h.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (h *htmlWriter) href(name, url string) {
	h.attr(name, string(templ.URL(url)))
}

// renderView writes the page of view with status. The page is rendered into a
// buffer first; on failure only a bare 500 is written.
func renderView(ctx context.Context, w http.ResponseWriter, status int, view *formadmin.View) error {
	if view == nil {
		return fmt.Errorf("response has no view")
	}
	var page templ.Component
	switch view.Name {
	case "list":
		page = layout(view.PageTitle, listPage(view))
	case "edit":
		page = layout(view.PageTitle, editPage(view))
	default:
		return writePage(ctx, w, http.StatusInternalServerError, nil, fmt.Errorf("unknown view %q", view.Name))
	}
	return writePage(ctx, w, status, page, nil)
}

func renderIndex(ctx context.Context, w http.ResponseWriter, routePrefix string, models []string) error {
	return writePage(ctx, w, http.StatusOK, layout("Admin", indexPage(routePrefix, models)), nil)
}

func writePage(ctx context.Context, w http.ResponseWriter, status int, page templ.Component, err error) error {
	var buf bytes.Buffer
	if err == nil {
		err = page.Render(ctx, &buf)
	}
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>")
		h.text(title)
		h.raw("</title>\n</head>\n<body>\n")
		if h.err != nil {
			return h.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		h.raw("\n</body>\n</html>\n")
		return h.err
	})
}

func indexPage(routePrefix string, models []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<h1>Admin</h1>\n<ul>\n")
		for _, name := range models {
			h.raw("  <li><a")
			h.href("href", routePrefix+"/"+name)
			h.raw(">")
			h.text(name)
			h.raw("</a></li>\n")
		}
		h.raw("</ul>")
		return h.err
	})
}

func listPage(v *formadmin.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		base := v.RoutePrefix + "/" + v.Model
		h := &htmlWriter{w: w}
		h.raw("<h1>")
		h.text(v.PageHeader)
		h.raw("</h1>\n<p><a")
		h.href("href", base+"/new")
		h.raw(">Add new ")
		h.text(v.ModelName)
		h.raw("</a></p>\n")
		h.raw(`<form id="search"><input type="search" name="search[value]" placeholder="Search"></form>`, "\n")
		h.raw(`<table id="records"`)
		h.attr("data-source", base)
		h.raw(">\n  <thead>\n    <tr>\n")
		if v.ListFields != nil {
			for _, d := range v.ListFields.All() {
				h.raw("      <th")
				h.attr("data-key", d.Key)
				if d.Width != "" {
					h.attr("style", "width: "+d.Width)
				}
				h.raw(">")
				h.text(d.Title)
				h.raw("</th>\n")
			}
		}
		h.raw("    </tr>\n  </thead>\n  <tbody></tbody>\n</table>\n<p id=\"totals\"></p>\n")
		h.raw(listScript)
		return h.err
	})
}

// listScript fetches rows from the data endpoint of the table's data-source.
// Cells arrive already formatted and are inserted as HTML.
const listScript = `<script>
(function () {
  var table = document.getElementById("records");
  var keys = Array.prototype.map.call(table.querySelectorAll("th"), function (th) { return th.dataset.key; });
  var search = document.querySelector("#search input");

  function load() {
    var params = new URLSearchParams({start: "0", "search[value]": search.value});
    keys.forEach(function (key, i) { params.set("columns[" + i + "][data]", key); });
    fetch(table.dataset.source + "?" + params, {headers: {"X-Requested-With": "XMLHttpRequest"}})
      .then(function (res) { return res.json(); })
      .then(function (page) {
        table.tBodies[0].innerHTML = page.data.map(function (row) {
          return "<tr>" + keys.map(function (key) { return "<td>" + (row[key] || "") + "</td>"; }).join("") + "</tr>";
        }).join("");
        document.getElementById("totals").textContent = page.recordsFiltered + " of " + page.recordsTotal;
      });
  }

  document.getElementById("search").addEventListener("submit", function (e) { e.preventDefault(); load(); });
  load();
})();
</script>`

func editPage(v *formadmin.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<h1>")
		h.text(v.PageHeader)
		h.raw("</h1>\n")
		if len(v.Errors) > 0 {
			h.raw("<ul class=\"errors\">\n")
			for _, msg := range v.Errors {
				h.raw("  <li>")
				h.text(msg)
				h.raw("</li>\n")
			}
			h.raw("</ul>\n")
		}

		h.raw(`<form method="post" enctype="multipart/form-data">`, "\n")
		if v.EditFields != nil {
			for _, d := range v.EditFields.All() {
				editInput(h, d, recordValue(v.Record, d.Name))
			}
		}
		h.raw("  <p>\n    <button type=\"submit\">Save</button>\n    <a")
		h.href("href", v.RoutePrefix+"/"+v.Model)
		h.raw(">Back to list</a>\n  </p>\n</form>\n")

		if v.Record != nil && v.Record.Persisted() {
			h.raw(`<form method="post"`)
			h.href("action", v.RoutePrefix+"/"+v.Model+"/delete/"+internal.PlainValue(v.Record.ID))
			h.raw(">\n  <button type=\"submit\">Delete</button>\n</form>\n")
		}
		return h.err
	})
}

func editInput(h *htmlWriter, d formadmin.Descriptor, value string) {
	id := "f-" + d.Key
	if d.Type == formadmin.FieldTypeHidden {
		h.raw(`  <input type="hidden"`)
		h.attr("name", d.Key)
		h.attr("value", value)
		h.raw(">\n")
		return
	}

	h.raw("  <p>\n    <label")
	h.attr("for", id)
	h.raw(">")
	h.text(d.Label)
	h.raw("</label>\n    ")

	switch {
	case d.IsRelated():
		h.raw(`<input type="text"`)
		h.attr("id", id)
		h.attr("value", value)
		h.raw(" readonly>")
	case d.Type == formadmin.FieldTypeBoolean:
		// A select always submits exactly one value, unlike a checkbox.
		h.raw("<select")
		h.attr("id", id)
		h.attr("name", d.Key)
		h.raw(">\n      <option value=\"0\">No</option>\n      <option value=\"1\"")
		if value != "" && value != "0" {
			h.raw(" selected")
		}
		h.raw(">Yes</option>\n    </select>")
	case d.Type == formadmin.FieldTypeHTML:
		h.raw("<textarea")
		h.attr("id", id)
		h.attr("name", d.Key)
		h.raw(">")
		h.text(value)
		h.raw("</textarea>")
	case d.Type == formadmin.FieldTypeSelect:
		h.raw("<select")
		h.attr("id", id)
		h.attr("name", d.Key)
		if d.Multiple {
			h.raw(" multiple")
		}
		h.raw(">\n")
		for _, opt := range d.Options {
			h.raw("      <option")
			h.attr("value", opt)
			if opt == value {
				h.raw(" selected")
			}
			h.raw(">")
			h.text(opt)
			h.raw("</option>\n")
		}
		h.raw("    </select>")
	case d.Type.IsUpload():
		if value != "" {
			h.raw(`<span class="current">`)
			h.text(value)
			h.raw("</span>\n    <label><input type=\"checkbox\"")
			h.attr("name", internal.RemoveFlagPrefix+d.Key)
			h.raw(" value=\"1\"> Remove</label>\n    ")
		}
		h.raw(`<input type="file"`)
		h.attr("id", id)
		h.attr("name", d.Key)
		if d.Type == formadmin.FieldTypeImage {
			h.raw(` accept="image/*"`)
		}
		h.raw(">")
	default:
		h.raw(`<input type="text"`)
		h.attr("id", id)
		h.attr("name", d.Key)
		h.attr("value", value)
		h.raw(">")
	}
	h.raw("\n  </p>\n")
}

func recordValue(record *formadmin.Entity, name string) string {
	if record == nil {
		return ""
	}
	v, _ := record.Get(name)
	return internal.PlainValue(v)
}
