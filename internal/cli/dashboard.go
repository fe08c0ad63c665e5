package cli

import (
	"fmt"
	"io"

	"github.com/dmitrijs2005/planillas/internal/models"
)

var features = []string{
	"Gestión centralizada de planillas de docentes",
	"Digitalización inteligente (imagen/PDF) con OCR",
	"Ingreso manual de datos con validación",
	"Reportes en PDF y Excel por colegio",
	"Búsqueda avanzada por DNI, nombre o apellido",
	"Descarga de documentos procesados",
}

// greetingName is the first word of the display name, "usuario" when blank.
func greetingName(acc models.Account) string {
	if n := acc.FirstName(); n != "" {
		return n
	}
	return "usuario"
}

func renderDashboard(w io.Writer, acc models.Account) {
	fmt.Fprintf(w, "Gestor de Planillas · Sistema de Docentes    %s\n", acc.Email)
	fmt.Fprintln(w, "Bienvenido al Sistema")
	fmt.Fprintf(w, "Hola %s, ¡que tengas un gran día de trabajo!\n", greetingName(acc))
	fmt.Fprintln(w, "Funcionalidades Principales")
	for _, f := range features {
		fmt.Fprintf(w, "  - %s\n", f)
	}
}
