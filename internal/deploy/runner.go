package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gearrent/internal/logger"
)

var (
	// ErrNotUp is returned by Wait when no container reported "Up" in time.
	ErrNotUp = errors.New("containers did not come up")
	// ErrNoDatabase is returned by the database commands when no database name is configured.
	ErrNoDatabase = errors.New("database name is not configured")
)

// StepError reports a required step that exited non-zero.
type StepError struct {
	Step     string
	ExitCode int
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed with exit code %d", e.Step, e.ExitCode)
}

// Runner sequences the remote command scripts of deployctl over an Executor.
type Runner struct {
	exec  Executor
	cfg   *Config
	out   io.Writer
	sleep func(context.Context, time.Duration) error

	compose string
}

func NewRunner(exec Executor, cfg *Config, out io.Writer) *Runner {
	return &Runner{exec: exec, cfg: cfg, out: out, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Deploy clones or updates the project and brings the compose stack up.
func (r *Runner) Deploy(ctx context.Context) error {
	dir := r.cfg.Project.Dir

	if _, err := r.required(ctx, "Creating deployment directory: "+dir, "mkdir -p "+quote(dir)); err != nil {
		return err
	}

	fetch := r.inDir("git pull origin " + quote(r.cfg.Project.Branch))
	if repo := r.cfg.Project.RepoURL; repo != "" {
		fetch = r.inDir(fmt.Sprintf("git clone %s . 2>&1 || git pull origin %s", quote(repo), quote(r.cfg.Project.Branch)))
	}
	if _, err := r.required(ctx, "Fetching repository", fetch); err != nil {
		return err
	}
	if _, err := r.step(ctx, "Verifying repository", r.inDir("ls -la")); err != nil {
		return err
	}

	compose, err := r.detectCompose(ctx)
	if err != nil {
		return err
	}
	if _, err := r.step(ctx, "Starting containers with "+compose, r.inDir(compose+" up -d --build")); err != nil {
		return err
	}
	if err := r.pause(ctx, 5*time.Second); err != nil {
		return err
	}
	if _, err := r.step(ctx, "Checking container status", r.inDir(compose+" ps")); err != nil {
		return err
	}
	if _, err := r.step(ctx, "Checking service ports", r.inDir(compose+" config | grep -E 'ports:|image:' | head -15")); err != nil {
		return err
	}

	r.printf("\n[+] Deployment completed!\n")
	r.printf("    - Server: %s\n", r.cfg.SSH.Host)
	r.printf("    - Deploy directory: %s\n", dir)
	r.printf("    - Check status: ssh %s@%s 'cd %s && %s ps'\n", r.cfg.SSH.User, r.cfg.SSH.Host, dir, compose)
	return nil
}

// Wait polls the compose status until some container is Up or the attempts run out.
func (r *Runner) Wait(ctx context.Context) error {
	compose, err := r.detectCompose(ctx)
	if err != nil {
		return err
	}

	attempts := r.cfg.Wait.Attempts
	up := false
	r.printf("[*] Checking compose status on %s...\n", r.cfg.SSH.Host)
	for i := 1; i <= attempts; i++ {
		res, err := r.exec.Run(ctx, r.inDir(compose+" ps"))
		if err != nil {
			return err
		}
		r.printf("\n[Check %d/%d]\n%s", i, attempts, res.Stdout)
		if strings.Contains(res.Stdout, "Up") {
			r.printf("[+] Containers are running!\n")
			up = true
			break
		}
		if i < attempts {
			if err := r.sleep(ctx, r.cfg.Wait.Interval); err != nil {
				return err
			}
		}
	}

	final := r.inDir(fmt.Sprintf("%s ps && echo '---' && curl -s %s | head -20", compose, quote(r.cfg.Project.AppURL)))
	if _, err := r.step(ctx, "Final status", final); err != nil {
		return err
	}
	if !up {
		return fmt.Errorf("%w after %d checks", ErrNotUp, attempts)
	}
	return nil
}

// Status prints containers, recent logs, listening ports and service URLs.
func (r *Runner) Status(ctx context.Context) error {
	compose, err := r.detectCompose(ctx)
	if err != nil {
		return err
	}
	if _, err := r.step(ctx, "Container status", r.inDir(compose+" ps")); err != nil {
		return err
	}

	r.printf("\n[*] Recent logs\n")
	res, err := r.exec.Run(ctx, r.inDir(compose+" logs --tail 20"))
	if err != nil {
		return err
	}
	r.printf("%s\n", tail(res.Stdout+res.Stderr, 1000))

	ports := make([]string, len(r.cfg.Project.Ports))
	for i, p := range r.cfg.Project.Ports {
		ports[i] = strconv.Itoa(p)
	}
	if _, err := r.step(ctx, "Listening ports", fmt.Sprintf("netstat -tlnp 2>/dev/null | grep -E '%s'", strings.Join(ports, "|"))); err != nil {
		return err
	}

	r.printf("\n[+] Service URLs\n")
	for _, p := range r.cfg.Project.Ports {
		r.printf("    http://%s:%d\n", r.cfg.SSH.Host, p)
	}
	return nil
}

// Fix restarts the stack without rebuilding and shows what is running.
func (r *Runner) Fix(ctx context.Context) error {
	compose, err := r.detectCompose(ctx)
	if err != nil {
		return err
	}
	steps := []struct{ desc, cmd string }{
		{"Recent commits", r.inDir("git log --oneline -3")},
		{"Compose file", r.inDir("cat " + quote(r.cfg.Project.ComposeFile) + " | head -30")},
		{"All containers", "docker ps -a --format 'table {{.Names}}\t{{.Status}}'"},
		{"Starting containers", r.inDir(compose + " up -d 2>&1")},
	}
	if err := r.steps(ctx, steps); err != nil {
		return err
	}
	if err := r.pause(ctx, 10*time.Second); err != nil {
		return err
	}
	_, err = r.step(ctx, "Container status", r.inDir(compose+" ps"))
	return err
}

// Reset removes the containers, frees the app port, hard-resets the checkout
// to the remote branch and rebuilds.
func (r *Runner) Reset(ctx context.Context) error {
	compose, err := r.detectCompose(ctx)
	if err != nil {
		return err
	}
	port := strconv.Itoa(r.cfg.Project.Ports[0])

	steps := []struct{ desc, cmd string }{
		{"Stopping containers", r.inDir(compose + " ps -a -q 2>/dev/null | xargs -r docker stop 2>&1")},
		{"Removing containers", r.inDir(compose + " ps -a -q 2>/dev/null | xargs -r docker rm 2>&1")},
		{"Process on port " + port, fmt.Sprintf("lsof -i :%s 2>/dev/null || netstat -tlnp 2>/dev/null | grep %s", port, port)},
		{"Freeing port " + port, fmt.Sprintf("sudo lsof -ti :%s | xargs -r sudo kill -9 2>/dev/null || echo 'No process found or permission issue'", port)},
	}
	if err := r.steps(ctx, steps); err != nil {
		return err
	}

	if _, err := r.required(ctx, "Resetting to origin/"+r.cfg.Project.Branch,
		r.inDir("git fetch && git reset --hard origin/"+quote(r.cfg.Project.Branch))); err != nil {
		return err
	}

	steps = []struct{ desc, cmd string }{
		{"Compose ports", r.inDir("grep -A 3 'ports:' " + quote(r.cfg.Project.ComposeFile))},
		{"Rebuilding containers", r.inDir(compose + " up -d --build 2>&1")},
	}
	if err := r.steps(ctx, steps); err != nil {
		return err
	}
	if err := r.pause(ctx, 15*time.Second); err != nil {
		return err
	}
	_, err = r.step(ctx, "Container status", r.inDir(compose+" ps"))
	return err
}

// InitDB recreates the database volume so the schema is initialised from scratch.
func (r *Runner) InitDB(ctx context.Context) error {
	if r.cfg.Database.Name == "" {
		return ErrNoDatabase
	}
	compose, err := r.detectCompose(ctx)
	if err != nil {
		return err
	}
	steps := []struct{ desc, cmd string }{
		{"Pulling latest changes", r.inDir("git pull origin " + quote(r.cfg.Project.Branch))},
		{"Stopping containers", r.inDir(compose + " down")},
		{"Removing database volume", "docker volume rm " + quote(r.cfg.Database.Volume) + " 2>&1 || true"},
		{"Starting fresh containers", r.inDir(compose + " up -d --build")},
	}
	if err := r.steps(ctx, steps); err != nil {
		return err
	}
	if err := r.pause(ctx, 30*time.Second); err != nil {
		return err
	}
	steps = []struct{ desc, cmd string }{
		{"Tables", r.mysql("SHOW TABLES;")},
		{"Rows in " + r.cfg.Database.Table, r.mysql("SELECT * FROM " + r.cfg.Database.Table + ";")},
		{"Container status", r.inDir(compose + " ps")},
	}
	return r.steps(ctx, steps)
}

// VerifyDB prints the tables and the contents of the inventory table.
func (r *Runner) VerifyDB(ctx context.Context) error {
	if r.cfg.Database.Name == "" {
		return ErrNoDatabase
	}
	table := r.cfg.Database.Table
	return r.steps(ctx, []struct{ desc, cmd string }{
		{"Tables", r.mysql("SHOW TABLES;")},
		{"Structure of " + table, r.mysql(fmt.Sprintf("DESCRIBE %s; SELECT * FROM %s;", table, table))},
	})
}

// detectCompose prefers the standalone docker-compose binary and falls back
// to the compose plugin. The answer is cached for the Runner's lifetime.
func (r *Runner) detectCompose(ctx context.Context) (string, error) {
	if r.compose != "" {
		return r.compose, nil
	}
	res, err := r.exec.Run(ctx, r.inDir("docker-compose --version 2>&1"))
	if err != nil {
		return "", err
	}
	r.compose = "docker-compose"
	if res.ExitCode != 0 || strings.Contains(res.Stdout, "not found") {
		r.compose = "docker compose"
	}
	r.printf("[*] Using '%s'\n", r.compose)
	return r.compose, nil
}

func (r *Runner) steps(ctx context.Context, steps []struct{ desc, cmd string }) error {
	for _, s := range steps {
		if _, err := r.step(ctx, s.desc, s.cmd); err != nil {
			return err
		}
	}
	return nil
}

// step runs cmd and prints its output. A non-zero exit is printed, not returned.
func (r *Runner) step(ctx context.Context, desc, cmd string) (Result, error) {
	r.printf("\n[*] %s\n", desc)
	// cmd may carry the database password; log the step only
	logger.Debug("remote command", "step", desc)

	res, err := r.exec.Run(ctx, cmd)
	if err != nil {
		return res, err
	}
	if res.Stdout != "" {
		r.printf("%s", res.Stdout)
		if !strings.HasSuffix(res.Stdout, "\n") {
			r.printf("\n")
		}
	}
	if res.ExitCode != 0 {
		r.printf("[ERROR] exit code %d\n", res.ExitCode)
		if res.Stderr != "" {
			r.printf("%s\n", strings.TrimRight(res.Stderr, "\n"))
		}
	}
	return res, nil
}

func (r *Runner) required(ctx context.Context, desc, cmd string) (Result, error) {
	res, err := r.step(ctx, desc, cmd)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, &StepError{Step: desc, ExitCode: res.ExitCode}
	}
	return res, nil
}

func (r *Runner) pause(ctx context.Context, d time.Duration) error {
	r.printf("\n[*] Waiting %s for containers to start...\n", d)
	return r.sleep(ctx, d)
}

func (r *Runner) inDir(cmd string) string {
	return "cd " + quote(r.cfg.Project.Dir) + " && " + cmd
}

func (r *Runner) mysql(sql string) string {
	db := r.cfg.Database
	auth := "-u" + quote(db.User)
	if db.Password != "" {
		auth += " -p" + quote(db.Password)
	}
	return fmt.Sprintf("docker exec %s mysql %s %s -e %s", quote(db.Container), auth, quote(db.Name), quote(sql))
}

func (r *Runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// quote wraps s for a POSIX shell.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
