// Package taskfile читает Forgefile.yaml и регистрирует описанные в нём
// задачи, правила и namespace в engine.Engine.
//
// # Формат
//
//	default: build
//	env:
//	  CC: gcc
//	tasks:
//	  - name: build
//	    desc: Build the app
//	    deps: [bin/app]
//	directories: [bin]
//	files:
//	  - name: bin/app
//	    deps: [bin, main.o]
//	    steps:
//	      - shell: "{{ .Env.CC }} -o {{ .Name }} main.o"
//	rules:
//	  - pattern: "%.o"
//	    source: "%.c"
//	    steps:
//	      - shell: "{{ .Env.CC }} -c {{ .Source }} -o {{ .Name }}"
//	namespaces:
//	  - name: db
//	    tasks:
//	      - name: migrate
//	        steps:
//	          - shell: ./migrate up
//
// Шаги (shell, delay, http, mkdir, invoke) выполняются последовательно
// через реестр steps. Строки конфигурации шага рендерятся text/template
// с контекстом Context. Имя в шаге invoke разрешается относительно
// namespace задачи, как имя пререквизита.
//
// # Проверка
//
// Parse отклоняет неизвестные поля, пустые и повторяющиеся имена,
// некорректные правила и шаги. Ошибки оборачивают sentinel-значения
// (ErrInvalidName, ErrInvalidRule, ...) и при возможности содержат
// ValidationError с именем задачи и полем.
package taskfile
