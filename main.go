package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/Martin-d-abloh/proyecto-academia/api"
	"github.com/Martin-d-abloh/proyecto-academia/config"
	"github.com/Martin-d-abloh/proyecto-academia/flow"
	"github.com/Martin-d-abloh/proyecto-academia/model"
	"github.com/Martin-d-abloh/proyecto-academia/pkg/logger"
	"github.com/Martin-d-abloh/proyecto-academia/reconcile"
	"github.com/Martin-d-abloh/proyecto-academia/session"
)

// app bundles everything a subcommand needs.
type app struct {
	cfg   *config.Config
	store session.Store
	gate  *session.Gate
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath(), "path to config file")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ Error:", err)
		os.Exit(1)
	}

	// Log lines go to stderr so command output stays clean.
	logger.InitWriter(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}, os.Stderr)

	store := session.NewFileStore(cfg.Session.File)
	a := &app{cfg: cfg, store: store, gate: session.NewGate(store)}

	if err := a.run(args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, statusMessage(err))
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".proyecto-academia", "config.yaml")
}

func usage() {
	fmt.Fprint(os.Stderr, `Uso: academia [-config file] <comando> [opciones]

Sesión:
  login          -usuario U -contrasena C     acceso de administrador
  login-alumno   -credencial "Nombre Apellidos"
  logout         [-alumno]

Administración:
  tablas         [-admin id]
  crear-tabla    -nombre N
  rm-tabla       -id N
  tabla          -id N                        matriz alumnos x documentos
  add-doc        -tabla N -nombre D
  rm-doc         -tabla N -doc ID
  add-alumno     -tabla N -nombre X -apellidos Y
  rm-alumno      -tabla N -id UUID
  descargar      -id ID -nombre N [-dir D]
  ver            -id ID [-alumno]

Alumno:
  docs
  subir          -doc D -archivo F
  rm-subida      -id ID

Superadmin:
  admins
  add-admin      -nombre N -usuario U -contrasena C
  rm-admin       -id N
  panel          -admin N
`)
}

func (a *app) run(command string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.Backend.TimeoutSeconds)*time.Second)
	defer cancel()

	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "login-alumno":
		return a.cmdLoginStudent(ctx, args)
	case "logout":
		return a.cmdLogout(args)
	case "tablas":
		return a.cmdListTables(ctx, args)
	case "crear-tabla":
		return a.cmdCreateTable(ctx, args)
	case "rm-tabla":
		return a.cmdDeleteTable(ctx, args)
	case "tabla":
		return a.cmdShowTable(ctx, args)
	case "add-doc":
		return a.cmdAddDocument(ctx, args)
	case "rm-doc":
		return a.cmdRemoveDocument(ctx, args)
	case "add-alumno":
		return a.cmdAddStudent(ctx, args)
	case "rm-alumno":
		return a.cmdRemoveStudent(ctx, args)
	case "descargar":
		return a.cmdDownload(ctx, args)
	case "ver":
		return a.cmdView(args)
	case "docs":
		return a.cmdStudentDocs(ctx)
	case "subir":
		return a.cmdUpload(ctx, args)
	case "rm-subida":
		return a.cmdDeleteUpload(ctx, args)
	case "admins":
		return a.cmdListAdmins(ctx)
	case "add-admin":
		return a.cmdCreateAdmin(ctx, args)
	case "rm-admin":
		return a.cmdDeleteAdmin(ctx, args)
	case "panel":
		return a.cmdAdminPanel(ctx, args)
	default:
		usage()
		return fmt.Errorf("comando desconocido: %s", command)
	}
}

// statusMessage renders an error the way the web frontend rendered its
// status area.
func statusMessage(err error) string {
	var validation *model.ValidationError
	if errors.As(err, &validation) {
		return "⚠️ " + validation.Message
	}
	var denied *session.DeniedError
	if errors.As(err, &denied) {
		return fmt.Sprintf("❌ %s — vuelve a iniciar sesión (%s)", denied.Reason, denied.LoginPath())
	}
	if api.IsNetworkError(err) {
		return "❌ Error de red: no se pudo conectar con el servidor"
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return "❌ Error: " + apiErr.Message
	}
	if errors.Is(err, reconcile.ErrCancelled) {
		return "Operación cancelada"
	}
	return "❌ Error: " + err.Error()
}

func (a *app) client(family session.Family) *api.Client {
	return api.NewClient(
		a.cfg.Backend.URL,
		session.TokenSource{Store: a.store, Family: family},
		api.WithTimeout(time.Duration(a.cfg.Backend.TimeoutSeconds)*time.Second),
	)
}

func (a *app) staffClient() *api.Client {
	return a.client(session.FamilyStaff)
}

func (a *app) studentClient() *api.Client {
	return a.client(session.FamilyStudent)
}

// confirm asks s/N on stdin before destructive actions.
func confirm(prompt string) bool {
	fmt.Printf("%s [s/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "s" || answer == "si" || answer == "sí" || answer == "y"
}

// --- session commands ---

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("usuario", "", "admin username")
	password := fs.String("contrasena", "", "admin password")
	fs.Parse(args)

	if *username == "" || *password == "" {
		return model.NewValidationError("faltan usuario o contraseña")
	}

	token, superadmin, err := a.staffClient().LoginStaff(ctx, *username, *password)
	if err != nil {
		return err
	}
	if err := a.store.Set(session.FamilyStaff, token); err != nil {
		return err
	}

	if superadmin {
		fmt.Println("✅ Sesión iniciada como superadmin")
	} else {
		fmt.Println("✅ Sesión iniciada como admin")
	}
	return nil
}

func (a *app) cmdLoginStudent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login-alumno", flag.ExitOnError)
	credential := fs.String("credencial", "", "nombre y apellidos")
	fs.Parse(args)

	if strings.TrimSpace(*credential) == "" {
		return model.NewValidationError("credencial requerida")
	}

	token, studentID, err := a.studentClient().LoginStudent(ctx, *credential)
	if err != nil {
		return err
	}
	if err := a.store.Set(session.FamilyStudent, token); err != nil {
		return err
	}

	fmt.Println("✅ Sesión de alumno iniciada:", studentID)
	return nil
}

func (a *app) cmdLogout(args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	student := fs.Bool("alumno", false, "cerrar la sesión de alumno")
	fs.Parse(args)

	family := session.FamilyStaff
	if *student {
		family = session.FamilyStudent
	}
	if err := a.store.Clear(family); err != nil {
		return err
	}
	fmt.Println("Sesión cerrada")
	return nil
}

// --- admin commands ---

func (a *app) cmdListTables(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tablas", flag.ExitOnError)
	adminID := fs.Int("admin", 0, "listar las tablas de otro admin (superadmin)")
	fs.Parse(args)

	role := session.RoleAdmin
	if *adminID != 0 {
		role = session.RoleSuperadmin
	}
	if _, err := a.gate.Resolve(role); err != nil {
		return err
	}

	tables, err := a.staffClient().ListTables(ctx, *adminID)
	if err != nil {
		return a.gate.HandleAPIError(role, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOMBRE\tALUMNOS")
	for _, t := range tables {
		fmt.Fprintf(w, "%d\t%s\t%d\n", t.ID, t.Name, t.StudentCount)
	}
	return w.Flush()
}

func (a *app) cmdCreateTable(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("crear-tabla", flag.ExitOnError)
	name := fs.String("nombre", "", "table name")
	fs.Parse(args)

	if strings.TrimSpace(*name) == "" {
		return model.NewValidationError("nombre requerido")
	}
	if _, err := a.gate.Resolve(session.RoleAdmin); err != nil {
		return err
	}

	if err := a.staffClient().CreateTable(ctx, strings.TrimSpace(*name)); err != nil {
		return a.gate.HandleAPIError(session.RoleAdmin, err)
	}
	fmt.Println("✅ Tabla creada")
	return nil
}

func (a *app) cmdDeleteTable(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm-tabla", flag.ExitOnError)
	id := fs.Int("id", 0, "table id")
	fs.Parse(args)

	if *id == 0 {
		return model.NewValidationError("falta el id de la tabla")
	}
	if _, err := a.gate.Resolve(session.RoleAdmin); err != nil {
		return err
	}
	if !confirm("¿Eliminar esta tabla y todos sus datos?") {
		return reconcile.ErrCancelled
	}

	if err := a.staffClient().DeleteTable(ctx, *id); err != nil {
		return a.gate.HandleAPIError(session.RoleAdmin, err)
	}
	fmt.Println("✅ Tabla eliminada")
	return nil
}

func (a *app) reconciler(tableID int) (*reconcile.Reconciler, error) {
	if _, err := a.gate.Resolve(session.RoleAdmin); err != nil {
		return nil, err
	}
	return reconcile.NewReconciler(a.staffClient(), a.gate, session.RoleAdmin, tableID, confirm), nil
}

func (a *app) cmdShowTable(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tabla", flag.ExitOnError)
	id := fs.Int("id", 0, "table id")
	fs.Parse(args)

	if *id == 0 {
		return model.NewValidationError("falta el id de la tabla")
	}

	rec, err := a.reconciler(*id)
	if err != nil {
		return err
	}
	if err := rec.Load(ctx); err != nil {
		return err
	}

	renderMatrix(rec.Table(), rec.Matrix())
	return nil
}

func renderMatrix(table *model.TableDetail, matrix *reconcile.Matrix) {
	fmt.Printf("📄 %s\n\n", table.Name)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	header := "ALUMNO"
	for _, doc := range matrix.Cols() {
		header += "\t" + doc.Name
	}
	header += "\tESTADO"
	fmt.Fprintln(w, header)

	for _, student := range matrix.Rows() {
		row := student.FullName()
		for _, doc := range matrix.Cols() {
			row += "\t" + cellText(matrix, student.ID, doc.Name)
		}
		if matrix.AllDelivered(student.ID) {
			row += "\t✅"
		} else {
			row += "\t❌"
		}
		fmt.Fprintln(w, row)
	}
	w.Flush()
}

func cellText(matrix *reconcile.Matrix, studentID, docName string) string {
	up, ok := matrix.Cell(studentID, docName)
	if !ok {
		return "no entregado"
	}
	switch up.State {
	case model.StateAccepted:
		return fmt.Sprintf("validado (#%d)", up.ID)
	case model.StateRejected:
		return fmt.Sprintf("rechazado (#%d)", up.ID)
	default:
		return fmt.Sprintf("subido (#%d)", up.ID)
	}
}

func (a *app) cmdAddDocument(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-doc", flag.ExitOnError)
	tableID := fs.Int("tabla", 0, "table id")
	name := fs.String("nombre", "", "document name")
	fs.Parse(args)

	if *tableID == 0 {
		return model.NewValidationError("falta el id de la tabla")
	}

	rec, err := a.reconciler(*tableID)
	if err != nil {
		return err
	}
	if err := rec.Load(ctx); err != nil {
		return err
	}
	if err := rec.AddDocumentRequirement(ctx, *name); err != nil {
		return err
	}
	fmt.Println("✅ Documento añadido")
	return nil
}

func (a *app) cmdRemoveDocument(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm-doc", flag.ExitOnError)
	tableID := fs.Int("tabla", 0, "table id")
	docID := fs.Int("doc", 0, "document id")
	fs.Parse(args)

	if *tableID == 0 || *docID == 0 {
		return model.NewValidationError("faltan el id de la tabla o del documento")
	}

	rec, err := a.reconciler(*tableID)
	if err != nil {
		return err
	}
	if err := rec.RemoveDocumentRequirement(ctx, *docID); err != nil {
		return err
	}
	fmt.Println("✅ Documento eliminado")
	return nil
}

func (a *app) cmdAddStudent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-alumno", flag.ExitOnError)
	tableID := fs.Int("tabla", 0, "table id")
	firstName := fs.String("nombre", "", "first name")
	lastName := fs.String("apellidos", "", "last name")
	fs.Parse(args)

	if *tableID == 0 {
		return model.NewValidationError("falta el id de la tabla")
	}

	rec, err := a.reconciler(*tableID)
	if err != nil {
		return err
	}
	if err := rec.AddStudent(ctx, *firstName, *lastName); err != nil {
		return err
	}
	fmt.Println("✅ Alumno añadido")
	return nil
}

func (a *app) cmdRemoveStudent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm-alumno", flag.ExitOnError)
	tableID := fs.Int("tabla", 0, "table id")
	studentID := fs.String("id", "", "student id")
	fs.Parse(args)

	if *tableID == 0 || *studentID == "" {
		return model.NewValidationError("faltan el id de la tabla o del alumno")
	}

	rec, err := a.reconciler(*tableID)
	if err != nil {
		return err
	}
	if err := rec.Load(ctx); err != nil {
		return err
	}
	if err := rec.RemoveStudent(ctx, *studentID); err != nil {
		return err
	}
	fmt.Println("✅ Alumno eliminado exitosamente")
	return nil
}

func (a *app) cmdDownload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("descargar", flag.ExitOnError)
	id := fs.Int("id", 0, "upload id")
	name := fs.String("nombre", "documento", "suggested filename")
	dir := fs.String("dir", ".", "destination directory")
	fs.Parse(args)

	if *id == 0 {
		return model.NewValidationError("falta el id del documento")
	}
	if _, err := a.gate.Resolve(session.RoleAdmin); err != nil {
		return err
	}

	adminFlow := flow.NewAdminFlow(a.staffClient(), a.gate, session.RoleAdmin)
	path, err := adminFlow.Download(ctx, *id, *name, *dir)
	if err != nil {
		return err
	}
	fmt.Println("📥 Guardado en", path)
	return nil
}

func (a *app) cmdView(args []string) error {
	fs := flag.NewFlagSet("ver", flag.ExitOnError)
	id := fs.Int("id", 0, "upload id")
	student := fs.Bool("alumno", false, "view as student")
	fs.Parse(args)

	if *id == 0 {
		return model.NewValidationError("falta el id del documento")
	}

	var url string
	var err error
	if *student {
		claims, gateErr := a.gate.Resolve(session.RoleStudent)
		if gateErr != nil {
			return gateErr
		}
		url, err = flow.NewStudentFlow(a.studentClient(), a.gate, claims.StudentID).ViewURL(*id)
	} else {
		if _, gateErr := a.gate.Resolve(session.RoleAdmin); gateErr != nil {
			return gateErr
		}
		url, err = flow.NewAdminFlow(a.staffClient(), a.gate, session.RoleAdmin).ViewURL(*id)
	}
	if err != nil {
		return err
	}

	// Opening the browser is left to the user; the URL is self-contained.
	fmt.Println(url)
	return nil
}

// --- student commands ---

func (a *app) studentFlow() (*flow.StudentFlow, error) {
	claims, err := a.gate.Resolve(session.RoleStudent)
	if err != nil {
		return nil, err
	}
	return flow.NewStudentFlow(a.studentClient(), a.gate, claims.StudentID), nil
}

func (a *app) cmdStudentDocs(ctx context.Context) error {
	sf, err := a.studentFlow()
	if err != nil {
		return err
	}
	docs, err := sf.RequiredDocuments(ctx)
	if err != nil {
		return err
	}
	renderStudentDocs(docs)
	return nil
}

func renderStudentDocs(docs []model.RequiredDocument) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENTO\tESTADO\tID")
	for _, d := range docs {
		id := "-"
		if d.UploadID != nil {
			id = fmt.Sprintf("%d", *d.UploadID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Name, d.State, id)
	}
	w.Flush()
}

func (a *app) cmdUpload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("subir", flag.ExitOnError)
	docName := fs.String("doc", "", "document name")
	path := fs.String("archivo", "", "file to upload")
	fs.Parse(args)

	sf, err := a.studentFlow()
	if err != nil {
		return err
	}

	if strings.TrimSpace(*path) == "" {
		return model.NewValidationError("no se ha seleccionado ningún archivo")
	}
	file, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("no se pudo abrir el archivo: %w", err)
	}
	defer file.Close()

	docs, err := sf.Upload(ctx, *docName, filepath.Base(*path), file)
	if err != nil {
		return err
	}

	fmt.Println("✅ Documento subido correctamente")
	renderStudentDocs(docs)
	return nil
}

func (a *app) cmdDeleteUpload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm-subida", flag.ExitOnError)
	id := fs.Int("id", 0, "upload id")
	fs.Parse(args)

	if *id == 0 {
		return model.NewValidationError("falta el id de la subida")
	}

	sf, err := a.studentFlow()
	if err != nil {
		return err
	}
	docs, err := sf.Delete(ctx, *id)
	if err != nil {
		return err
	}

	fmt.Println("✅ Documento eliminado")
	renderStudentDocs(docs)
	return nil
}

// --- superadmin commands ---

func (a *app) cmdListAdmins(ctx context.Context) error {
	if _, err := a.gate.Resolve(session.RoleSuperadmin); err != nil {
		return err
	}

	admins, err := a.staffClient().ListAdmins(ctx)
	if err != nil {
		return a.gate.HandleAPIError(session.RoleSuperadmin, err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNOMBRE")
	for _, admin := range admins {
		fmt.Fprintf(w, "%d\t%s\n", admin.ID, admin.Name)
	}
	return w.Flush()
}

func (a *app) cmdCreateAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add-admin", flag.ExitOnError)
	name := fs.String("nombre", "", "display name")
	username := fs.String("usuario", "", "username")
	password := fs.String("contrasena", "", "password")
	fs.Parse(args)

	if *name == "" || *username == "" || *password == "" {
		return model.NewValidationError("faltan datos: nombre, usuario o contraseña")
	}
	if _, err := a.gate.Resolve(session.RoleSuperadmin); err != nil {
		return err
	}

	if err := a.staffClient().CreateAdmin(ctx, *name, *username, *password); err != nil {
		return a.gate.HandleAPIError(session.RoleSuperadmin, err)
	}
	fmt.Println("✅ Admin creado")
	return nil
}

func (a *app) cmdDeleteAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm-admin", flag.ExitOnError)
	id := fs.Int("id", 0, "admin id")
	fs.Parse(args)

	if *id == 0 {
		return model.NewValidationError("falta el id del admin")
	}
	if _, err := a.gate.Resolve(session.RoleSuperadmin); err != nil {
		return err
	}
	if !confirm("¿Eliminar este admin y todas sus tablas?") {
		return reconcile.ErrCancelled
	}

	if err := a.staffClient().DeleteAdmin(ctx, *id); err != nil {
		return a.gate.HandleAPIError(session.RoleSuperadmin, err)
	}
	fmt.Println("✅ Admin eliminado")
	return nil
}

func (a *app) cmdAdminPanel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("panel", flag.ExitOnError)
	adminID := fs.Int("admin", 0, "admin id")
	fs.Parse(args)

	if *adminID == 0 {
		return model.NewValidationError("falta el id del admin")
	}
	if _, err := a.gate.Resolve(session.RoleSuperadmin); err != nil {
		return err
	}

	panel, err := a.staffClient().AdminPanel(ctx, *adminID)
	if err != nil {
		return a.gate.HandleAPIError(session.RoleSuperadmin, err)
	}

	fmt.Printf("Admin: %s (id %d)\n", panel.AdminName, panel.AdminID)
	for i := range panel.Tables {
		table := &panel.Tables[i]
		fmt.Printf("\n== Tabla %d: %s ==\n", table.ID, table.Name)
		renderMatrix(table, reconcile.BuildMatrix(table))
	}
	return nil
}
